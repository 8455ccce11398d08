// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/muxfs/lib/config"
	"github.com/bureau-foundation/muxfs/lib/mux"
	"github.com/bureau-foundation/muxfs/lib/service"
)

// listResponse is the data of the "list" action.
type listResponse struct {
	Names []string `cbor:"names" json:"names"`
}

// registerStatusActions installs the read-only status actions.
func registerStatusActions(server *service.SocketServer, registry *mux.Registry) {
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return registry.Snapshot(), nil
	})
	server.Handle("list", func(ctx context.Context, raw []byte) (any, error) {
		return listResponse{Names: registry.Names()}, nil
	})
}

const statusTimeout = 10 * time.Second

func runStatus(args []string, stdout io.Writer) error {
	var (
		socketPath string
		configPath string
		jsonOutput bool
	)
	flagSet := pflag.NewFlagSet("muxfs status", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "status socket of the running mount (default: status_socket from config)")
	flagSet.StringVar(&configPath, "config", "", "path to muxfs.yaml (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVar(&jsonOutput, "json", false, "print the snapshot as JSON")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	if socketPath == "" {
		var cfg *config.Config
		var err error
		switch {
		case configPath != "":
			cfg, err = config.LoadFile(configPath)
		case os.Getenv(config.EnvironmentVariable) != "":
			cfg, err = config.Load()
		default:
			return fmt.Errorf("no status socket: pass --socket, or --config naming a file with status_socket set")
		}
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.StatusSocket == "" {
			return fmt.Errorf("config has no status_socket; the mount is not serving status")
		}
		socketPath = cfg.StatusSocket
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	var snapshot mux.Snapshot
	if err := service.NewClient(socketPath).Call(ctx, "status", nil, &snapshot); err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(snapshot)
	}
	return writeSnapshot(stdout, snapshot)
}

// writeSnapshot prints snapshot as a table.
func writeSnapshot(w io.Writer, snapshot mux.Snapshot) error {
	fmt.Fprintf(w, "%d of %d points live, %d readers per point, paths shorter than %d bytes\n",
		len(snapshot.Points),
		snapshot.Limits.MaxPoints,
		snapshot.Limits.MaxReaders,
		snapshot.Limits.MaxPathLength,
	)
	if len(snapshot.Points) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "INDEX\tPATH\tREFS\tREADERS\tCREATED\n")
	for _, point := range snapshot.Points {
		fmt.Fprintf(writer, "%d\t%s\t%d\t%d\t%s\n",
			point.Index,
			point.Path,
			point.Refcount,
			point.Readers,
			point.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}
