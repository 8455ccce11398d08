// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for muxfs.
//
// Configuration comes from a single file named by the MUXFS_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery of other locations. Running
// without a file uses [Default], which matches the reference capacities
// of 8 mux points, 8 readers per point, and paths under 32 bytes.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No environment
// variable overrides a config value; command-line flags may.
package config
