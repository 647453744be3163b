// Command magento-fga-sync extracts one company's B2B authorization data
// (users, teams, roles, ACL permissions) from an Adobe Commerce store and
// synchronizes it into an OpenFGA store as a relationship-tuple graph.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/commerce-iam/magento-fga-sync/cmd"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Fall back to the VCS revision from build info when ldflags did not
	// set one.
	if commit == "none" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					commit = setting.Value
					break
				}
			}
		}
	}

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("magento-fga-sync version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	root := &cmd.RootCommand{Version: fmt.Sprintf("%s (commit: %s)", version, commit)}
	if err := root.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
