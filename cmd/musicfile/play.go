package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/cmd"
	"github.com/vsariola/musicfile/player"
)

var (
	playStart int
	playMIDI  string
	playTail  time.Duration
)

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().IntVarP(&playStart, "start", "s", 0, "tick to start from (default from the configuration)")
	playCmd.Flags().StringVarP(&playMIDI, "midi", "m", "", "play through the first MIDI output whose name starts with this")
	playCmd.Flags().DurationVar(&playTail, "tail", time.Second, "time to let the last notes ring after the end")
}

var playCmd = &cobra.Command{
	Use:   "play <file>",
	Short: "Play a music file",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		m, err := musicfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		conf := cfg
		if c.Flags().Changed("midi") {
			conf.MIDIOut = playMIDI
		}
		start := conf.Player.InitialTick
		if c.Flags().Changed("start") {
			start = playStart
		}
		backend, err := cmd.NewBackend(conf, logger)
		if err != nil {
			return err
		}
		defer backend.Close()
		sched := player.NewScheduler(backend,
			player.WithLogger(logger),
			player.WithInitialTick(start),
			player.WithCompileOptions(conf.CompileOptions()...))
		defer sched.Dispose()
		sched.Subscribe(func(tick int, ended bool) {
			if ended {
				logger.Printf("%v: ended", args[0])
			} else if tick%m.TicksPerBar() == 0 {
				logger.Printf("%v: bar %d of %d", args[0], tick/m.TicksPerBar()+1, m.NumBars())
			}
		})
		if err := sched.Compile(m); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		// the scheduler leaves Playing both at the end and on errors
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for sched.State() == player.Playing {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		if err := sched.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
		case <-time.After(playTail):
		}
		return nil
	},
}
