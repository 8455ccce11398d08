// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Names returns the name (path without the leading separator) of
// every live point, in registry order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for i := range r.points {
		if r.points[i].path != "" {
			names = append(names, strings.TrimPrefix(r.points[i].path, "/"))
		}
	}
	return names
}

// ListEntries lists a directory. Only the root is a directory; its
// entries are "." and ".." followed by Names.
func (r *Registry) ListEntries(path string) ([]string, error) {
	if path != "/" {
		return nil, fmt.Errorf("listing %q: %w", path, ErrNotFound)
	}
	return append([]string{".", ".."}, r.Names()...), nil
}

// Attributes is the metadata reported for a path.
type Attributes struct {
	// Mode holds the file type and permission bits.
	Mode uint32

	// Nlink is the link count.
	Nlink uint32

	// Size is always zero; points hold no data.
	Size uint64
}

// IsDir reports whether the attributes describe a directory.
func (a Attributes) IsDir() bool { return a.Mode&unix.S_IFMT == unix.S_IFDIR }

// Attributes returns directory attributes for the root and regular
// file attributes for any other valid path. Whether a point currently
// exists for the path is not consulted.
func (r *Registry) Attributes(path string) (Attributes, error) {
	if path == "/" {
		return Attributes{Mode: unix.S_IFDIR | 0o770, Nlink: 2}, nil
	}
	if err := r.CheckPath(path); err != nil {
		return Attributes{}, err
	}
	return Attributes{Mode: unix.S_IFREG | 0o660, Nlink: 1}, nil
}

// Truncate always succeeds without effect: points hold no data, and
// shell redirection truncates before writing.
func (r *Registry) Truncate(path string, size int64) error {
	return nil
}
