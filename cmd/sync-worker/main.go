package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"

	"aura-api/api"
	"aura-api/config"
	"aura-api/storage"
	"aura-api/worker"
)

func main() {
	config.Debug()
	log.Info("sync worker starting")

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	names, err := config.StorageNames()
	if err != nil {
		log.Fatal(err)
	}
	if names.SyncQueue == "" {
		log.Fatal("missing SYNC_QUEUE")
	}
	store, err := storage.New(connStr, names)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	logger := log.StandardLogger()
	kanbanOpts, err := config.KanbanOptions(logger)
	if err != nil {
		log.Fatal(err)
	}
	idle, err := config.Duration("SYNC_POLL_INTERVAL", 0)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &worker.Worker{
		Queue:  store,
		Users:  store,
		Boards: api.KanbanBoards(kanbanOpts...),
		Log:    logger,
		Idle:   idle,
	}
	if err := w.Run(ctx); err != nil {
		log.Fatalf("sync worker: %v", err)
	}
}
