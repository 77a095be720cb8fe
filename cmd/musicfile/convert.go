package main

import (
	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
)

var convertFormat string

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "write to standard output in this format (json or yaml) instead of a file")
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> [output]",
	Short: "Convert a music file between .json and .yml",
	Long: `Convert reads a music file in either format and writes it to output, in the
format given by its extension, or to standard output with --format.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := musicfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			return musicfile.WriteFile(args[1], m)
		}
		format := musicfile.FormatYAML
		if convertFormat != "" {
			if format, err = musicfile.ParseFormat(convertFormat); err != nil {
				return err
			}
		}
		return musicfile.Write(cmd.OutOrStdout(), m, format)
	},
}
