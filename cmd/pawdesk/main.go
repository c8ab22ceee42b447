package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pawdesk/pawdesk/internal/profile"
	"github.com/pawdesk/pawdesk/server"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/db"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "pawdesk",
	Short: "Customer support chat backend for a veterinary clinic",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p, err := profile.Load(version)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		setupLogger(p)

		driver, err := db.NewDriver(p)
		if err != nil {
			return fmt.Errorf("create db driver: %w", err)
		}
		st := store.New(driver)
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("failed to close store", "error", err)
			}
		}()

		s, err := server.NewServer(ctx, p, st)
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-signals
			slog.Info("shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		return s.Start()
	},
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
