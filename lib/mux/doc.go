// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mux implements named fan-out broadcast points addressed by
// filesystem path.
//
// A [Registry] holds a fixed number of mux points. Each point is keyed
// by a path directly below the root ("/logs", "/sensor0") and owns a
// fixed number of reader slots. Every reader slot is backed by its own
// kernel pipe: a reader consumes from the read end, and a broadcast
// write copies the same bytes into the write end of every claimed slot
// of the point.
//
// # Lifecycle
//
// The first open of a previously unseen path (for reading or writing)
// claims a free registry entry for it. Every open takes one reference
// on the point and every release drops one; when the count returns to
// zero the path is cleared and the entry can be reused for a different
// path. A point whose count is above zero is never reused, even if it
// has no readers.
//
// # Concurrency
//
// One mutex guards the path table and reference counts. It is held
// only for the short lookup and bookkeeping sections, never across
// pipe I/O. Reader slots are claimed with a compare-and-swap on the
// slot's write end, so concurrent read-opens on one point do not
// serialize on the registry lock.
//
// Reads block until data arrives; writes block until every claimed
// slot's pipe has accepted all bytes. Both observe context
// cancellation (FUSE interrupts) and return [ErrInterrupted].
//
// # Handles
//
// Opens return a [Handle]: an integer that the caller presents on
// every later read, write, and release. [HandleCodec] describes the
// encoding. Write handles carry only the point index; read handles
// carry the point and slot index and are tagged so the two kinds never
// collide.
package mux
