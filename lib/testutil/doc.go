// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so that tests waiting on goroutines blocked in pipe I/O fail
// with a message instead of hanging. They are the only place in the
// test suite where wall-clock timeouts are used.
//
// [SocketDir] creates a short directory in /tmp for Unix sockets,
// whose paths are limited to 108 bytes.
//
// [UniqueID] generates distinct names, for example mux point paths
// that must not collide between subtests.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
