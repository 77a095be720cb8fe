package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
)

var validateFix bool

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "grow files whose items run past the last bar and write them back")
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check that music files parse and hold all their items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var errs []error
		for _, path := range args {
			if err := validate(cmd, path); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

func validate(cmd *cobra.Command, path string) error {
	m, err := musicfile.ReadFile(path)
	if err != nil {
		return err
	}
	if m.Valid() {
		fmt.Fprintf(cmd.OutOrStdout(), "%v: ok\n", path)
		return nil
	}
	if !validateFix {
		return fmt.Errorf("%v: %d bars, but items need %d", path, m.NumBars(), m.MinValidNumBars())
	}
	fixed := m.EnsureMinValidNumBars()
	if err := musicfile.WriteFile(path, fixed); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v: grown from %d to %d bars\n", path, m.NumBars(), fixed.NumBars())
	return nil
}
