package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "musicfile %v (file format %v", version.VersionOrHash, musicfile.CurrentVersion)
		if v := version.Info.GoVersion; v != "" {
			fmt.Fprintf(cmd.OutOrStdout(), ", %v", v)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ")")
	},
}
