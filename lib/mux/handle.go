// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import "fmt"

// HandleKind distinguishes write handles from read handles.
type HandleKind uint8

const (
	// WriteHandle refers to a point only. Writes through it are
	// broadcast to every claimed slot of the point.
	WriteHandle HandleKind = iota

	// ReadHandle refers to one reader slot of a point.
	ReadHandle
)

func (k HandleKind) String() string {
	switch k {
	case WriteHandle:
		return "write"
	case ReadHandle:
		return "read"
	default:
		return fmt.Sprintf("HandleKind(%d)", uint8(k))
	}
}

// Handle is the opaque value returned by an open and presented on
// every later operation on that open.
type Handle uint64

// readTag marks read handles. Without it the write handle for point m
// would equal the read handle for slot 0 of point m.
const readTag Handle = 1 << 63

// HandleCodec encodes and decodes handles for one set of limits.
//
// A write handle is the point index. A read handle is
// slot*MaxPoints + point with readTag set. Both indexes are bounded,
// so the read encoding is a bijection and decoding recovers
// point = value mod MaxPoints and slot = value div MaxPoints.
type HandleCodec struct {
	points  int
	readers int
}

// NewHandleCodec returns the codec for limits. The limits must have
// been validated.
func NewHandleCodec(limits Limits) HandleCodec {
	return HandleCodec{points: limits.MaxPoints, readers: limits.MaxReaders}
}

// Encode builds a handle. The slot index is ignored for write
// handles.
func (c HandleCodec) Encode(kind HandleKind, point, slot int) (Handle, error) {
	if point < 0 || point >= c.points {
		return 0, fmt.Errorf("encoding %s handle: point %d out of range [0, %d): %w", kind, point, c.points, ErrBadHandle)
	}
	switch kind {
	case WriteHandle:
		return Handle(point), nil
	case ReadHandle:
		if slot < 0 || slot >= c.readers {
			return 0, fmt.Errorf("encoding read handle: slot %d out of range [0, %d): %w", slot, c.readers, ErrBadHandle)
		}
		return readTag | Handle(slot*c.points+point), nil
	default:
		return 0, fmt.Errorf("encoding %s: %w", kind, ErrBadHandle)
	}
}

// Decode splits a handle into its kind, point index, and slot index.
// The slot index of a write handle is always zero. Values that no
// Encode call could have produced are rejected.
func (c HandleCodec) Decode(handle Handle) (kind HandleKind, point, slot int, err error) {
	if handle&readTag == 0 {
		if handle >= Handle(c.points) {
			return 0, 0, 0, fmt.Errorf("decoding write handle %d: %w", uint64(handle), ErrBadHandle)
		}
		return WriteHandle, int(handle), 0, nil
	}

	value := handle &^ readTag
	if value >= Handle(c.points*c.readers) {
		return 0, 0, 0, fmt.Errorf("decoding read handle %#x: %w", uint64(handle), ErrBadHandle)
	}
	return ReadHandle, int(value % Handle(c.points)), int(value / Handle(c.points)), nil
}
