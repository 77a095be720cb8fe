package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile/config"
)

var (
	configPath string
	quiet      bool
	cfg        config.Config
	logger     = log.New(os.Stderr, "musicfile: ", log.LstdFlags)
)

var rootCmd = &cobra.Command{
	Use:   "musicfile",
	Short: "Inspect, convert, play and serve music files",
	Long: `musicfile works with music files: tracks of notes, chords and sample
references laid out on a tick grid. It can validate and convert them, play
them through the built-in sampler or a MIDI output, render them to .wav and
serve them for remote editing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet {
			logger.SetOutput(io.Discard)
		}
		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file layered over the user configuration")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not log")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
