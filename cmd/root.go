// Package cmd implements the command-line interface: a root command that
// routes to subcommands, each parsing its own flags.
package cmd

import (
	"fmt"
	"os"
)

var (
	rootLong = `Synchronizes Adobe Commerce B2B company structures into an OpenFGA
authorization graph.

Available subcommands:
  sync - Extract one company's users, teams, roles, and permissions and
         push them to OpenFGA (or write them locally with --dry-run)`

	rootExample = `  # Dry run: extract and write application.json without pushing
  magento-fga-sync sync --dry-run --env .env

  # Push to OpenFGA using the REST transport
  magento-fga-sync sync --push --variant onprem-rest --env .env`
)

// RootCommand routes to subcommands.
type RootCommand struct {
	Version string
}

// Run dispatches the first argument as a subcommand name.
func (c *RootCommand) Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required. Use 'magento-fga-sync --help' for usage")
	}

	subcommand := args[0]
	subArgs := args[1:]

	switch subcommand {
	case "sync":
		cmd := &SyncCommand{}
		return cmd.Run(subArgs)

	case "version":
		fmt.Printf("magento-fga-sync %s\n", c.Version)
		return nil

	case "--help", "-h", "help":
		fmt.Fprintf(os.Stderr, `magento-fga-sync - Adobe Commerce B2B to OpenFGA connector

Usage:
  magento-fga-sync [subcommand] [flags]

%s

Examples:
%s

Use "magento-fga-sync [subcommand] --help" for subcommand flags.
`, rootLong, rootExample)
		return nil

	default:
		return fmt.Errorf("unknown subcommand: %s\nUse 'magento-fga-sync --help' for usage", subcommand)
	}
}
