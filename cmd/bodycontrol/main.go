package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/bodycontrol/internal/config"
	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/logging"
	"github.com/dukerupert/bodycontrol/internal/server"
)

const usage = `usage:
  bodycontrol                          serve the HTTP API
  bodycontrol restore <backup-id> <out-path>
                                       download and decrypt a backup to out-path`

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	args := os.Args[1:]
	if len(args) > 0 && args[0] != "restore" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if len(args) > 0 && len(args) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, logger.With("component", "database"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, server.Config{Backup: cfg.Backup(), TrustProxy: cfg.TrustProxy}, logger)

	if len(args) == 3 {
		code := restore(srv, args[1], args[2])
		db.Close()
		os.Exit(code)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// /delay holds responses open for as long as the client asks.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	srv.BackupManager().Start(bgCtx)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("bodycontrol starting", "addr", ":"+cfg.Port, "driver", cfg.DBDriver, "backups", srv.BackupManager().Enabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	srv.BackupManager().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

func restore(srv *server.Server, id, dst string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.BackupManager().Fetch(ctx, id, dst); err != nil {
		slog.Error("restore failed", "id", id, "error", err)
		return 1
	}
	slog.Info("backup restored", "id", id, "path", dst)
	return 0
}
