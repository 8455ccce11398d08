// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/muxfs/lib/mux"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Registry holds the mux points served by the mount.
	Registry *mux.Registry

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors are logged
	// to stderr.
	Logger *slog.Logger
}

// Mount mounts the mux filesystem at the configured mountpoint. The
// caller must call Unmount on the returned Server when done. The
// mountpoint directory is created if it does not exist.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{options: &options}

	// The listing changes whenever a point is created or reclaimed,
	// so directory entries are cached only briefly.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "muxfs",
			Name:       "muxfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("mux filesystem mounted",
		"mountpoint", options.Mountpoint,
		"max_points", options.Registry.Limits().MaxPoints,
		"max_readers", options.Registry.Limits().MaxReaders,
	)
	return server, nil
}

// rootNode is the only directory. Any name looked up in it resolves to
// a pointNode.
type rootNode struct {
	gofuse.Inode
	options *Options
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeGetattrer = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)

func (r *rootNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attributes, err := r.options.Registry.Attributes("/")
	if err != nil {
		return errnoFor(err)
	}
	fillAttr(&out.Attr, attributes)
	return 0
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := "/" + name
	attributes, err := r.options.Registry.Attributes(path)
	if err != nil {
		return nil, errnoFor(err)
	}
	fillAttr(&out.Attr, attributes)

	if child := r.GetChild(name); child != nil {
		return child, 0
	}
	child := r.NewInode(ctx, &pointNode{options: r.options, path: path}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	return child, 0
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names := r.options.Registry.Names()
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFREG})
	}
	return gofuse.NewListDirStream(entries), 0
}

// pointNode is the inode for one name. It holds no state of its own:
// the point is created by the first open and reclaimed after the last
// release.
type pointNode struct {
	gofuse.Inode
	options *Options
	path    string
}

var _ gofuse.InodeEmbedder = (*pointNode)(nil)
var _ gofuse.NodeGetattrer = (*pointNode)(nil)
var _ gofuse.NodeSetattrer = (*pointNode)(nil)
var _ gofuse.NodeOpener = (*pointNode)(nil)

func (p *pointNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attributes, err := p.options.Registry.Attributes(p.path)
	if err != nil {
		return errnoFor(err)
	}
	fillAttr(&out.Attr, attributes)
	return 0
}

// Setattr accepts truncation (shell ">" redirection opens with
// O_TRUNC) and ignores it. Other attribute changes are ignored too.
func (p *pointNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := p.options.Registry.Truncate(p.path, int64(size)); err != nil {
			return errnoFor(err)
		}
	}
	return p.Getattr(ctx, f, out)
}

func (p *pointNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	handle, errno := openHandle(p.options, p.path, flags)
	if errno != 0 {
		return nil, 0, errno
	}
	return handle, fuse.FOPEN_DIRECT_IO | fuse.FOPEN_NONSEEKABLE, 0
}

func fillAttr(out *fuse.Attr, attributes mux.Attributes) {
	out.Mode = attributes.Mode
	out.Nlink = attributes.Nlink
	out.Size = attributes.Size
}
