// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that records timestamps accepts a [Clock] instead of calling
// time.Now directly. Production wiring passes [Real]; tests pass
// [Fake], which stands still until [FakeClock.Advance] is called, so
// recorded times are deterministic.
package clock
