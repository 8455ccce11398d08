// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse exposes a mux.Registry as a FUSE filesystem.
//
// The mount is a single flat directory. Every name in it behaves as a
// regular file whether or not anyone has opened it: opening a name
// read-only subscribes to the mux point of that name, and opening it
// write-only publishes to it. Bytes written through any write-only
// descriptor are copied to every read-only descriptor open on the same
// name at that moment.
//
//	cat mnt/logs &           # subscriber 1
//	cat mnt/logs &           # subscriber 2
//	echo hello > mnt/logs    # both print "hello"
//
// Listing the directory shows the names that currently have at least
// one open descriptor. Read-write opens fail with EACCES. Files report
// size zero, truncation is accepted and ignored, and all I/O is direct
// and non-seekable so the kernel neither caches nor reorders data.
//
// Registry errors map to errno values in one place (errnoFor), for
// example a full registry or a point with every reader slot taken
// yields ENOMEM.
package fuse
