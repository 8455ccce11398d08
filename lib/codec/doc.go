// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// status socket server and its clients.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Timestamps are encoded as RFC 3339 text with nanoseconds so point
// creation times survive a round trip exactly.
//
// Types carry `json` struct tags; fxamacker/cbor reads them when no
// `cbor` tag is present, so one tag controls naming for both the wire
// format and any JSON output of the same value.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
