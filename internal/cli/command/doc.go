// Package command defines the sessbox command-line interface with
// urfave/cli/v2.
//
// Commands load the configuration and open the local store lazily, so
// "config" subcommands work without touching the data directory.
package command
