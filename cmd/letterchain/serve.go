package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pynay/LetterChain/internal/db"
	"github.com/pynay/LetterChain/internal/server"
	"github.com/pynay/LetterChain/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serve exposes the generate and feedback workflows over HTTP, with NDJSON and SSE progress streams.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg := server.Config{
		Port:      cfg.Port,
		Workflow:  a.controller,
		Cache:     a.profiles,
		Postings:  a.postings,
		RateLimit: ratelimit.LoadConfig(os.Getenv),
		Logger:    a.logger,
	}
	if a.database != nil {
		srvCfg.Runs = a.database
		srvCfg.Health = a.database
		if n, err := db.NewProfileCache(a.database).Purge(ctx); err != nil {
			a.logger.Warn("failed to purge expired profiles", "error", err)
		} else if n > 0 {
			a.logger.Info("purged expired profiles", "count", n)
		}
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
