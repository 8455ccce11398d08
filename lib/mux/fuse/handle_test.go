// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"testing"

	"github.com/bureau-foundation/muxfs/lib/mux"
)

func testOptions(t *testing.T) *Options {
	t.Helper()
	registry, err := mux.NewRegistry(mux.Options{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return &Options{
		Registry: registry,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		})),
	}
}

func TestErrnoFor(t *testing.T) {
	cases := []struct {
		err  error
		want syscall.Errno
	}{
		{nil, 0},
		{fmt.Errorf("wrapped: %w", mux.ErrNameTooLong), syscall.ENAMETOOLONG},
		{mux.ErrResourceExhausted, syscall.ENOMEM},
		{mux.ErrNotFound, syscall.ENOENT},
		{mux.ErrPermissionDenied, syscall.EACCES},
		{mux.ErrInterrupted, syscall.EINTR},
		{mux.ErrInvalidPath, syscall.EINVAL},
		{mux.ErrBadHandle, syscall.EBADF},
		{fmt.Errorf("pipe2: %w", syscall.EMFILE), syscall.EMFILE},
		{errors.New("something else"), syscall.EIO},
	}
	for _, tc := range cases {
		if got := errnoFor(tc.err); got != tc.want {
			t.Errorf("errnoFor(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestOpenHandleRejectsReadWrite(t *testing.T) {
	options := testOptions(t)

	if _, errno := openHandle(options, "/both", syscall.O_RDWR); errno != syscall.EACCES {
		t.Errorf("O_RDWR open errno = %v, want EACCES", errno)
	}
	if _, errno := openHandle(options, "/both", syscall.O_ACCMODE); errno != syscall.EACCES {
		t.Errorf("O_ACCMODE open errno = %v, want EACCES", errno)
	}
	if names := options.Registry.Names(); len(names) != 0 {
		t.Errorf("rejected opens created points: %v", names)
	}
}

func TestOpenHandleRejectsLongNames(t *testing.T) {
	options := testOptions(t)

	path := "/this-name-is-definitely-longer-than-31"
	if _, errno := openHandle(options, path, syscall.O_RDONLY); errno != syscall.ENAMETOOLONG {
		t.Errorf("long name errno = %v, want ENAMETOOLONG", errno)
	}
}

func TestPointHandleBroadcast(t *testing.T) {
	options := testOptions(t)

	// O_TRUNC and O_CREAT ride along with shell redirection and must
	// not change the access mode decision.
	reader, errno := openHandle(options, "/stream", syscall.O_RDONLY)
	if errno != 0 {
		t.Fatalf("read open: %v", errno)
	}
	writer, errno := openHandle(options, "/stream", syscall.O_WRONLY|syscall.O_TRUNC|syscall.O_CREAT)
	if errno != 0 {
		t.Fatalf("write open: %v", errno)
	}

	written, errno := writer.Write(t.Context(), []byte("sample"), 0)
	if errno != 0 || written != 6 {
		t.Fatalf("Write = (%d, %v), want (6, 0)", written, errno)
	}

	result, errno := reader.Read(t.Context(), make([]byte, 64), 0)
	if errno != 0 {
		t.Fatalf("Read: %v", errno)
	}
	data, status := result.Bytes(nil)
	if !status.Ok() {
		t.Fatalf("ReadResult.Bytes: %v", status)
	}
	if string(data) != "sample" {
		t.Errorf("Read = %q, want %q", data, "sample")
	}

	// Handles of the wrong kind are refused.
	if _, errno := reader.Write(t.Context(), []byte("x"), 0); errno != syscall.EBADF {
		t.Errorf("Write through reader errno = %v, want EBADF", errno)
	}

	if errno := writer.Flush(t.Context()); errno != 0 {
		t.Errorf("Flush: %v", errno)
	}
	if errno := reader.Release(t.Context()); errno != 0 {
		t.Errorf("reader Release: %v", errno)
	}
	if errno := writer.Release(t.Context()); errno != 0 {
		t.Errorf("writer Release: %v", errno)
	}
	if names := options.Registry.Names(); len(names) != 0 {
		t.Errorf("points left after release: %v", names)
	}
	if errno := writer.Release(t.Context()); errno != syscall.EBADF {
		t.Errorf("second Release errno = %v, want EBADF", errno)
	}
}

func TestPointHandleReaderExhaustion(t *testing.T) {
	registry, err := mux.NewRegistry(mux.Options{Limits: mux.Limits{MaxPoints: 1, MaxReaders: 1, MaxPathLength: 32}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	options := testOptions(t)
	options.Registry = registry

	first, errno := openHandle(options, "/one", syscall.O_RDONLY)
	if errno != 0 {
		t.Fatalf("first open: %v", errno)
	}
	if _, errno := openHandle(options, "/one", syscall.O_RDONLY); errno != syscall.ENOMEM {
		t.Errorf("second reader errno = %v, want ENOMEM", errno)
	}
	if _, errno := openHandle(options, "/two", syscall.O_WRONLY); errno != syscall.ENOMEM {
		t.Errorf("second point errno = %v, want ENOMEM", errno)
	}
	if errno := first.Release(t.Context()); errno != 0 {
		t.Errorf("Release: %v", errno)
	}
}
