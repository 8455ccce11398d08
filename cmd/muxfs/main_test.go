// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunUnknownCommand(t *testing.T) {
	err := run([]string{"frobnicate"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("run(frobnicate) = %v, want unknown command error", err)
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"version"}, &out); err != nil {
		t.Fatalf("run(version): %v", err)
	}
	if !strings.HasPrefix(out.String(), "muxfs ") {
		t.Errorf("output = %q, want it to start with \"muxfs \"", out.String())
	}
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"help"}, &out); err != nil {
		t.Fatalf("run(help): %v", err)
	}
	if !strings.Contains(out.String(), "muxfs mount") {
		t.Errorf("help output does not describe mount:\n%s", out.String())
	}
}
