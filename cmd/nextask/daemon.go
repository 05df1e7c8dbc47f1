package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/nextask/internal/audit"
	"github.com/fentz26/nextask/internal/controlplane"
	"github.com/fentz26/nextask/internal/logger"
	"github.com/fentz26/nextask/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	dbPath     string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the nextask daemon",
	Long:  `Starts the nextask daemon which serves the HTTP API the CLI and TUI talk to.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (default from config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
}

// openStore opens the database named by --db or the config.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, err := cfg.ResolvedDBPath()
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		path = dbPath
	}
	return store.New(path)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := logger.L()

	addr := cfg.Listen
	if cmd.Flags().Changed("listen") {
		addr = listenAddr
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}

	pdr := audit.NewPDRWriter(s)
	service := controlplane.NewService(s, pdr, log, cfg.DefaultTag)
	server := controlplane.NewServer(service, s, addr)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	log.WithFields(logrus.Fields{
		"listen":      addr,
		"default_tag": cfg.DefaultTag,
		"version":     version,
	}).Info("nextask daemon started")

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server error")
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	log.Info("closing database connection")
	if err := s.Close(); err != nil {
		log.WithError(err).Warn("database close error")
	}

	log.Info("shutdown complete")
	return nil
}
