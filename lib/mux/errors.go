// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"errors"
	"os"
	"syscall"
)

var (
	// ErrNameTooLong is returned for paths of MaxPathLength bytes or
	// more.
	ErrNameTooLong = errors.New("mux: path too long")

	// ErrResourceExhausted is returned when every registry entry is in
	// use by another path, or every reader slot of a point is claimed.
	ErrResourceExhausted = errors.New("mux: resource exhausted")

	// ErrNotFound is returned for directory operations on anything
	// other than the root.
	ErrNotFound = errors.New("mux: not found")

	// ErrPermissionDenied is returned for opens that are neither
	// read-only nor write-only.
	ErrPermissionDenied = errors.New("mux: permission denied")

	// ErrInterrupted is returned when a blocking read or write is
	// abandoned because its context was cancelled.
	ErrInterrupted = errors.New("mux: interrupted")

	// ErrInvalidPath is returned for paths that do not name a single
	// entry directly below the root.
	ErrInvalidPath = errors.New("mux: invalid path")

	// ErrBadHandle is returned for handles that do not decode to a
	// live open of the expected kind.
	ErrBadHandle = errors.New("mux: bad handle")
)

// interruption converts the error of an I/O call that ran under ctx
// into ErrInterrupted when the call was cut short by cancellation or
// by a signal. Other errors are returned unchanged.
func interruption(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EINTR) {
		return ErrInterrupted
	}
	if errors.Is(err, os.ErrDeadlineExceeded) && ctx.Err() != nil {
		return ErrInterrupted
	}
	return err
}
