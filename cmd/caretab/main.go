package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rowandev/caretab/internal/backup"
	"github.com/rowandev/caretab/internal/database"
	"github.com/rowandev/caretab/internal/logging"
	"github.com/rowandev/caretab/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("CARETAB_LOG_LEVEL"))

	port := os.Getenv("CARETAB_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CARETAB_DB_PATH")
	if dbPath == "" {
		dbPath = "caretab.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("CARETAB_BACKUP_S3_ENDPOINT"),
			Bucket:    os.Getenv("CARETAB_BACKUP_S3_BUCKET"),
			Region:    os.Getenv("CARETAB_BACKUP_S3_REGION"),
			AccessKey: os.Getenv("CARETAB_BACKUP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("CARETAB_BACKUP_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("CARETAB_BACKUP_PASSPHRASE"),
	}

	srv := server.New(db, backupCfg, logger)

	// The server owns the one scheduler instance for the process.
	if err := srv.Scheduler().Initialize(); err != nil {
		logger.Error("initialize scheduler", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("caretab listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	srv.Scheduler().Shutdown()
	srv.StopCron()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}
