// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// muxfs mounts a FUSE filesystem in which every file is a broadcast
// channel: bytes written to a name by any process are delivered to
// every process that has the same name open for reading.
//
// Commands:
//
//	muxfs mount [flags] [mountpoint]   mount and serve until SIGINT/SIGTERM
//	muxfs status [flags]               print the live mux points of a mount
//	muxfs version                      print build information
//
// The mount command reads an optional YAML config (--config or
// MUXFS_CONFIG); flags given on the command line override file values.
// With status_socket configured, the mount serves a CBOR status socket
// that "muxfs status" queries. SIGUSR1 logs the current registry
// snapshot without stopping the mount.
package main
