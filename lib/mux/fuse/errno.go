// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"syscall"

	"github.com/bureau-foundation/muxfs/lib/mux"
)

// errnoFor converts a registry error to the errno returned to the
// kernel.
func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mux.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, mux.ErrResourceExhausted):
		return syscall.ENOMEM
	case errors.Is(err, mux.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, mux.ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, mux.ErrInterrupted):
		return syscall.EINTR
	case errors.Is(err, mux.ErrInvalidPath):
		return syscall.EINVAL
	case errors.Is(err, mux.ErrBadHandle):
		return syscall.EBADF
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}
