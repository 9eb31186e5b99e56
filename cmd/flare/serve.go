package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/flare-go/api"
	"github.com/yourusername/flare-go/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		return runServer(rt)
	},
}

func runServer(rt *runtime) error {
	log := rt.log
	config := rt.config

	log.Info("Starting Flare server",
		zap.String("version", domain.CurrentVersion),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("tool", config.Tool.Binary))

	if _, err := rt.downloadMgr.RecoverInterrupted(); err != nil {
		log.Warn("Failed to recover interrupted downloads", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.updateMgr.CheckOnStartup(ctx, config.Update.CheckOnStartup)

	router := api.SetupRouter(api.Services{
		Downloads: rt.downloadMgr,
		Events:    rt.downloadMgr,
		Updates:   rt.updateMgr,
		Tool:      &config.Tool,
		LogsDir:   config.Download.LogsDir,
	}, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
		return err
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := rt.downloadMgr.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping the active download", zap.Error(err))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
