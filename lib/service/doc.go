// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements a CBOR request-response protocol on a
// Unix socket, used by the muxfs status socket.
//
// Each connection carries exactly one exchange: the client writes one
// CBOR map containing an "action" field plus any action-specific
// fields, and the server replies with one [Response] and closes the
// connection. CBOR values are self-delimiting, so no framing is
// needed.
//
// [SocketServer] dispatches actions to handlers registered with
// [SocketServer.Handle]. [Client.Call] performs one exchange and
// decodes the response data into a caller-supplied value.
package service
