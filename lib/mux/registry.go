// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/muxfs/lib/clock"
)

// Limits are the static capacities of a Registry.
type Limits struct {
	// MaxPoints is the number of mux points that can exist at once.
	MaxPoints int `json:"max_points"`

	// MaxReaders is the number of concurrent readers per point.
	MaxReaders int `json:"max_readers"`

	// MaxPathLength bounds paths: a path must be shorter than this
	// many bytes, including the leading slash.
	MaxPathLength int `json:"max_path_length"`
}

// DefaultLimits returns 8 points of 8 readers each with paths shorter
// than 32 bytes.
func DefaultLimits() Limits {
	return Limits{MaxPoints: 8, MaxReaders: 8, MaxPathLength: 32}
}

// Validate checks that every limit is usable.
func (l Limits) Validate() error {
	var errs []error
	if l.MaxPoints < 1 {
		errs = append(errs, fmt.Errorf("max_points must be at least 1, got %d", l.MaxPoints))
	}
	if l.MaxReaders < 1 {
		errs = append(errs, fmt.Errorf("max_readers must be at least 1, got %d", l.MaxReaders))
	}
	if l.MaxPathLength < 3 {
		// The shortest point path, "/x", must fit.
		errs = append(errs, fmt.Errorf("max_path_length must be at least 3, got %d", l.MaxPathLength))
	}
	if l.MaxPoints > 0 && l.MaxReaders > 0 && uint64(l.MaxPoints)*uint64(l.MaxReaders) >= uint64(readTag) {
		errs = append(errs, fmt.Errorf("max_points * max_readers overflows the handle encoding"))
	}
	return errors.Join(errs...)
}

// Options configures a Registry.
type Options struct {
	// Limits are the registry capacities. The zero value uses
	// DefaultLimits.
	Limits Limits

	// PipeBufferSize is the capacity in bytes requested for each
	// reader slot's pipe. Zero keeps the kernel default.
	PipeBufferSize int

	// Clock stamps point creation times. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, errors are logged
	// to stderr.
	Logger *slog.Logger
}

// Registry is the fixed-capacity set of mux points. Construct one with
// NewRegistry at startup and share it with every request handler.
type Registry struct {
	limits         Limits
	codec          HandleCodec
	pipeBufferSize int
	clock          clock.Clock
	logger         *slog.Logger

	// mu guards path, refcount, and createdAt of every point. Slot
	// contents are atomics and are not covered by mu except during
	// release.
	mu     sync.Mutex
	points []point
}

// point is one registry entry. An entry is free exactly when path is
// empty, which is exactly when refcount is zero.
type point struct {
	path      string
	refcount  int
	createdAt time.Time
	slots     []slot
}

// slot is one reader branch. A slot is claimed exactly when writeEnd
// is non-nil; the compare-and-swap that sets writeEnd is the commit
// point of ownership. readEnd is stored immediately afterwards by the
// claiming opener.
type slot struct {
	writeEnd atomic.Pointer[pipeEnd]
	readEnd  atomic.Pointer[pipeEnd]
}

// NewRegistry creates an empty registry.
func NewRegistry(options Options) (*Registry, error) {
	if options.Limits == (Limits{}) {
		options.Limits = DefaultLimits()
	}
	if err := options.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	if options.PipeBufferSize < 0 {
		return nil, fmt.Errorf("pipe buffer size must not be negative, got %d", options.PipeBufferSize)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	points := make([]point, options.Limits.MaxPoints)
	for i := range points {
		points[i].slots = make([]slot, options.Limits.MaxReaders)
	}

	return &Registry{
		limits:         options.Limits,
		codec:          NewHandleCodec(options.Limits),
		pipeBufferSize: options.PipeBufferSize,
		clock:          options.Clock,
		logger:         options.Logger,
		points:         points,
	}, nil
}

// Limits returns the registry capacities.
func (r *Registry) Limits() Limits { return r.limits }

// Codec returns the handle codec matching the registry capacities.
func (r *Registry) Codec() HandleCodec { return r.codec }

// CheckPath reports whether path can name a mux point: it must be
// shorter than MaxPathLength bytes and consist of the separator
// followed by one non-empty name containing no further separator.
func (r *Registry) CheckPath(path string) error {
	if len(path) > r.limits.MaxPathLength-1 {
		return fmt.Errorf("%q is %d bytes, limit is %d: %w", path, len(path), r.limits.MaxPathLength-1, ErrNameTooLong)
	}
	if len(path) < 2 || path[0] != '/' || strings.IndexByte(path[1:], '/') >= 0 {
		return fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	return nil
}

// Resolve returns the index of the point for path, creating it in the
// first free entry if it does not exist, and takes one reference on
// it. Every successful Resolve must be matched by exactly one release
// of that reference.
func (r *Registry) Resolve(path string) (int, error) {
	if err := r.CheckPath(path); err != nil {
		return -1, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index := -1
	for i := range r.points {
		if r.points[i].path == path {
			index = i
			break
		}
	}
	if index < 0 {
		for i := range r.points {
			if r.points[i].path == "" {
				index = i
				r.points[i].path = path
				r.points[i].createdAt = r.clock.Now()
				r.logger.Debug("mux point created", "path", path, "index", i)
				break
			}
		}
	}
	if index < 0 {
		r.logger.Warn("mux registry full", "path", path, "max_points", r.limits.MaxPoints)
		return -1, fmt.Errorf("creating point for %s: all %d entries in use: %w", path, r.limits.MaxPoints, ErrResourceExhausted)
	}

	r.points[index].refcount++
	return index, nil
}

// OpenWrite resolves path and returns a write handle for it. No reader
// slot is allocated; bytes written while the point has no readers are
// discarded.
func (r *Registry) OpenWrite(path string) (Handle, error) {
	index, err := r.Resolve(path)
	if err != nil {
		return 0, err
	}
	handle, err := r.codec.Encode(WriteHandle, index, 0)
	if err != nil {
		r.unref(index)
		return 0, err
	}
	return handle, nil
}

// OpenRead resolves path, claims a free reader slot on it backed by a
// new pipe, and returns a read handle for that slot. On any failure
// the reference taken by resolution is dropped again.
func (r *Registry) OpenRead(path string) (Handle, error) {
	index, err := r.Resolve(path)
	if err != nil {
		return 0, err
	}

	channel, err := openPipe()
	if err != nil {
		r.unref(index)
		return 0, fmt.Errorf("opening reader on %s: %w", path, err)
	}
	if r.pipeBufferSize > 0 {
		if err := channel.resize(r.pipeBufferSize); err != nil {
			r.logger.Warn("keeping default pipe size", "path", path, "error", err)
		}
	}

	// The claim runs without r.mu. The reference taken above keeps the
	// point from being reclaimed while the slots are scanned.
	slots := r.points[index].slots
	for i := range slots {
		if !slots[i].writeEnd.CompareAndSwap(nil, channel.writeEnd) {
			continue
		}
		slots[i].readEnd.Store(channel.readEnd)

		handle, err := r.codec.Encode(ReadHandle, index, i)
		if err != nil {
			r.releaseSlot(index, i)
			return 0, err
		}
		r.logger.Debug("reader slot claimed", "path", path, "index", index, "slot", i)
		return handle, nil
	}

	channel.close()
	r.unref(index)
	r.logger.Warn("reader slots exhausted", "path", path, "max_readers", r.limits.MaxReaders)
	return 0, fmt.Errorf("opening reader on %s: all %d slots claimed: %w", path, r.limits.MaxReaders, ErrResourceExhausted)
}

// Release closes the open identified by handle. For a read handle both
// ends of the slot's pipe are closed and the slot becomes free. The
// point's reference is dropped and, if it was the last one, the path
// is cleared. Each handle must be released at most once.
func (r *Registry) Release(handle Handle) error {
	kind, index, slotIndex, err := r.codec.Decode(handle)
	if err != nil {
		return fmt.Errorf("releasing: %w", err)
	}

	if kind == ReadHandle {
		if r.points[index].slots[slotIndex].writeEnd.Load() == nil {
			return fmt.Errorf("releasing slot %d of point %d: slot not claimed: %w", slotIndex, index, ErrBadHandle)
		}
		return r.releaseSlot(index, slotIndex)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unrefLocked(index)
}

// releaseSlot closes and frees one slot and drops its point reference.
func (r *Registry) releaseSlot(index, slotIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &r.points[index].slots[slotIndex]
	// Close the write end first: a broadcast racing with this release
	// then fails with os.ErrClosed, which it skips, rather than EPIPE.
	if writeEnd := s.writeEnd.Load(); writeEnd != nil {
		if err := writeEnd.close(); err != nil {
			r.logger.Debug("closing slot write end", "index", index, "slot", slotIndex, "error", err)
		}
	}
	if readEnd := s.readEnd.Swap(nil); readEnd != nil {
		if err := readEnd.close(); err != nil {
			r.logger.Debug("closing slot read end", "index", index, "slot", slotIndex, "error", err)
		}
	}
	s.writeEnd.Store(nil)
	r.logger.Debug("reader slot released", "path", r.points[index].path, "index", index, "slot", slotIndex)

	return r.unrefLocked(index)
}

func (r *Registry) unref(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.unrefLocked(index); err != nil {
		r.logger.Error("dropping reference", "index", index, "error", err)
	}
}

// unrefLocked drops one reference on the point. r.mu must be held.
func (r *Registry) unrefLocked(index int) error {
	p := &r.points[index]
	if p.refcount == 0 {
		return fmt.Errorf("point %d has no open references: %w", index, ErrBadHandle)
	}
	p.refcount--
	if p.refcount == 0 {
		r.logger.Debug("mux point reclaimed", "path", p.path, "index", index)
		p.path = ""
		p.createdAt = time.Time{}
	}
	return nil
}
