package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile/cmd"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the MIDI outputs",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, args []string) {
		outs := cmd.MIDIOutputs()
		if len(outs) == 0 {
			fmt.Fprintln(c.OutOrStdout(), "no MIDI outputs found")
			return
		}
		for _, name := range outs {
			fmt.Fprintln(c.OutOrStdout(), name)
		}
	},
}
