// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/muxfs/lib/process"
	"github.com/bureau-foundation/muxfs/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "mount":
		return runMount(args[1:])
	case "status":
		return runStatus(args[1:], stdout)
	case "version", "--version":
		fmt.Fprintf(stdout, "muxfs %s\n", version.Full())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %q (run \"muxfs help\" for usage)", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `muxfs: filesystem of fan-out broadcast channels.

Every file in a muxfs mount is a named broadcast point. Bytes written
to a file are copied to every process that has it open for reading.

Usage:
  muxfs mount [flags] [mountpoint]
  muxfs status [flags]
  muxfs version

Examples:
  # Mount with default limits (8 points, 8 readers each)
  muxfs mount /run/muxfs

  # Mount from a config file with a status socket
  muxfs mount --config /etc/muxfs.yaml

  # Show live points of a running mount
  muxfs status --socket /run/muxfs.sock

Run "muxfs mount --help" or "muxfs status --help" for flags.
`)
}
