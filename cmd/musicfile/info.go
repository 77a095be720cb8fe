package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/report"
)

var (
	infoTemplate string
	infoFormat   string
)

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoTemplate, "template", "t", "summary.txt", "built-in report: "+strings.Join(report.Names(), ", "))
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "", "custom Go template, with sprig functions, executed on the report data")
}

var infoCmd = &cobra.Command{
	Use:   "info <file>...",
	Short: "Describe music files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			m, err := musicfile.ReadFile(path)
			if err != nil {
				return err
			}
			if infoFormat != "" {
				err = report.ExecuteText(cmd.OutOrStdout(), m, infoFormat)
			} else {
				err = report.Execute(cmd.OutOrStdout(), m, infoTemplate)
			}
			if err != nil {
				return fmt.Errorf("%v: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}
