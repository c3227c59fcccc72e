// Package config reads the environment shared by the server, the sync
// worker and the storage initializer.
package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"aura-api/kanban"
	"aura-api/storage"
)

// Debug raises the standard logger to debug level when DEBUG is true.
func Debug() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
}

// StorageNames collects the table and queue names. Tables are required;
// the sync queue is optional for processes that never enqueue.
func StorageNames() (storage.Names, error) {
	n := storage.Names{
		Users:         os.Getenv("USERS_TABLE"),
		Meetings:      os.Getenv("MEETINGS_TABLE"),
		Documents:     os.Getenv("DOCUMENTS_TABLE"),
		Conversations: os.Getenv("CONVERSATIONS_TABLE"),
		SyncQueue:     os.Getenv("SYNC_QUEUE"),
	}
	if n.Users == "" || n.Meetings == "" || n.Documents == "" || n.Conversations == "" {
		return n, fmt.Errorf("missing storage config")
	}
	return n, nil
}

// Duration reads a positive duration, returning def when unset.
func Duration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", name)
	}
	return d, nil
}

// RedisOptions accepts a redis:// URL or the host,password=...,ssl=True
// form used by managed caches.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, fmt.Errorf("missing redis config")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}

// KanbanOptions builds client options from KANBAN_BASE_URL, KANBAN_TIMEOUT
// and KANBAN_RETRY_EMPTY.
func KanbanOptions(logger *log.Logger) ([]kanban.Option, error) {
	opts := []kanban.Option{kanban.WithLogger(logger)}
	if u := os.Getenv("KANBAN_BASE_URL"); u != "" {
		opts = append(opts, kanban.WithBaseURL(u))
	}
	timeout, err := Duration("KANBAN_TIMEOUT", kanban.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	opts = append(opts, kanban.WithTimeout(timeout))
	if v := os.Getenv("KANBAN_RETRY_EMPTY"); v != "" {
		retryEmpty, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid KANBAN_RETRY_EMPTY: %w", err)
		}
		p := kanban.DefaultRetryPolicy
		p.RetryEmpty = retryEmpty
		opts = append(opts, kanban.WithRetryPolicy(p))
	}
	return opts, nil
}

// ListenAddr prefers PORT, then the functions host port, then 8080.
func ListenAddr() string {
	if v := os.Getenv("PORT"); v != "" {
		return ":" + v
	}
	if v, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		return ":" + v
	}
	return ":8080"
}
