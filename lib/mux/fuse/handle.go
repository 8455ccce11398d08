// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/muxfs/lib/mux"
)

// openMode opens path on the registry according to the access mode in
// flags. Only O_RDONLY and O_WRONLY are accepted.
func openMode(registry *mux.Registry, path string, flags uint32) (mux.Handle, error) {
	switch flags & syscall.O_ACCMODE {
	case syscall.O_RDONLY:
		return registry.OpenRead(path)
	case syscall.O_WRONLY:
		return registry.OpenWrite(path)
	default:
		return 0, fmt.Errorf("opening %s with flags %#o: %w", path, flags, mux.ErrPermissionDenied)
	}
}

// pointHandle is one open descriptor on a mux point.
type pointHandle struct {
	options *Options
	path    string
	handle  mux.Handle
}

var _ gofuse.FileReader = (*pointHandle)(nil)
var _ gofuse.FileWriter = (*pointHandle)(nil)
var _ gofuse.FileFlusher = (*pointHandle)(nil)
var _ gofuse.FileReleaser = (*pointHandle)(nil)

func openHandle(options *Options, path string, flags uint32) (*pointHandle, syscall.Errno) {
	handle, err := openMode(options.Registry, path, flags)
	if err != nil {
		options.Logger.Debug("open failed", "path", path, "flags", flags, "error", err)
		return nil, errnoFor(err)
	}
	return &pointHandle{options: options, path: path, handle: handle}, 0
}

// Read blocks until the point's writers have sent something. Offsets
// are meaningless on a broadcast stream and are ignored.
func (h *pointHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	count, err := h.options.Registry.Read(ctx, h.handle, dest)
	if err != nil {
		h.logFailure("read", err)
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(dest[:count]), 0
}

// Write broadcasts data to every reader currently open on the point.
func (h *pointHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	count, err := h.options.Registry.Write(ctx, h.handle, data)
	if err != nil {
		h.logFailure("write", err)
		return 0, errnoFor(err)
	}
	return uint32(count), 0
}

// Flush runs on every close(2) of a descriptor sharing this handle.
// Nothing is buffered, so there is nothing to do.
func (h *pointHandle) Flush(ctx context.Context) syscall.Errno {
	return 0
}

// Release runs once, after the last descriptor sharing this handle is
// closed.
func (h *pointHandle) Release(ctx context.Context) syscall.Errno {
	if err := h.options.Registry.Release(h.handle); err != nil {
		h.options.Logger.Error("release failed", "path", h.path, "error", err)
		return errnoFor(err)
	}
	return 0
}

func (h *pointHandle) logFailure(operation string, err error) {
	if errnoFor(err) == syscall.EIO {
		h.options.Logger.Error(operation+" failed", "path", h.path, "error", err)
		return
	}
	h.options.Logger.Debug(operation+" failed", "path", h.path, "error", err)
}
