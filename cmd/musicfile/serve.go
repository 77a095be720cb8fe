package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vsariola/musicfile"
	"github.com/vsariola/musicfile/cmd"
	"github.com/vsariola/musicfile/edit"
	"github.com/vsariola/musicfile/player"
	"github.com/vsariola/musicfile/server"
)

var (
	serveAddr string
	serveSave bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "address to listen on (default from the configuration)")
	serveCmd.Flags().BoolVar(&serveSave, "save", false, "write the edited file back on exit")
}

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a music file for remote playback and editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		m, err := musicfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		backend, err := cmd.NewBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()
		sched := player.NewScheduler(backend,
			player.WithLogger(logger),
			player.WithInitialTick(cfg.Player.InitialTick),
			player.WithCompileOptions(cfg.CompileOptions()...))
		defer sched.Dispose()
		session, err := edit.NewSession(m, sched, cfg.Edit.RecompileDelay, logger)
		if err != nil {
			return err
		}
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           server.New(session, sched, cfg.Server.AllowedOrigins, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		errc := make(chan error, 1)
		go func() {
			logger.Printf("serving %v on %v", args[0], addr)
			errc <- srv.ListenAndServe()
		}()
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		if serveSave {
			if err := musicfile.WriteFile(args[0], session.MusicFile()); err != nil {
				return err
			}
			logger.Printf("saved %v", args[0])
		}
		return nil
	},
}
