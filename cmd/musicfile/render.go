package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/cmd"
	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/sampler"
)

func init() {
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file> <output.wav>",
	Short: "Render a music file through the sampler into a .wav file",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		m, err := musicfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		s, err := cmd.NewSampler(cfg, logger)
		if err != nil {
			return err
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("could not create output file: %w", err)
		}
		if err := sampler.BounceWAV(f, player.Compile(m, cfg.CompileOptions()...), s, nil); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("could not write %v: %w", args[1], err)
		}
		logger.Printf("%v: rendered %v of audio to %v", args[0], m.Duration(), args[1])
		return nil
	},
}
