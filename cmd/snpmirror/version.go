// Version command for the snpmirror CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/snpmirror/pkg/snpmirror"
)

const modulePath = "github.com/mesh-intelligence/snpmirror"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the snpmirror version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "snpmirror v%s\nmodule: %s\n", snpmirror.Version, modulePath)
	},
}
