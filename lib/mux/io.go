// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Write broadcasts data to every claimed reader slot of the point
// behind a write handle. Slots are visited in index order and each
// receives all of data before the next is visited.
//
// The broadcast is not transactional: the first slot that fails ends
// the call, and slots after it do not receive data. A slot closed by
// its own concurrent release is skipped. On success the returned count
// is len(data).
func (r *Registry) Write(ctx context.Context, handle Handle, data []byte) (int, error) {
	kind, index, _, err := r.codec.Decode(handle)
	if err != nil {
		return 0, fmt.Errorf("writing: %w", err)
	}
	if kind != WriteHandle {
		return 0, fmt.Errorf("writing through %s handle: %w", kind, ErrBadHandle)
	}

	slots := r.points[index].slots
	for i := range slots {
		writeEnd := slots[i].writeEnd.Load()
		if writeEnd == nil {
			continue
		}
		if err := writeFull(ctx, writeEnd, data); err != nil {
			if errors.Is(err, os.ErrClosed) {
				continue
			}
			return 0, fmt.Errorf("broadcasting to slot %d of point %d: %w", i, index, err)
		}
	}
	return len(data), nil
}

// Read performs one blocking read of up to len(dest) bytes from the
// slot behind a read handle. It returns as soon as any bytes are
// available, so the count may be less than len(dest). A count of zero
// with a nil error means the slot's write end has been closed.
func (r *Registry) Read(ctx context.Context, handle Handle, dest []byte) (int, error) {
	kind, index, slotIndex, err := r.codec.Decode(handle)
	if err != nil {
		return 0, fmt.Errorf("reading: %w", err)
	}
	if kind != ReadHandle {
		return 0, fmt.Errorf("reading through %s handle: %w", kind, ErrBadHandle)
	}

	readEnd := r.points[index].slots[slotIndex].readEnd.Load()
	if readEnd == nil {
		return 0, fmt.Errorf("reading slot %d of point %d: slot not claimed: %w", slotIndex, index, ErrBadHandle)
	}

	count, err := readOnce(ctx, readEnd, dest)
	if errors.Is(err, io.EOF) {
		return count, nil
	}
	if err != nil {
		return count, fmt.Errorf("reading slot %d of point %d: %w", slotIndex, index, err)
	}
	return count, nil
}
