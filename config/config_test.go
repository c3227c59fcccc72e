package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestStorageNamesRequiresTables(t *testing.T) {
	t.Setenv("USERS_TABLE", "users")
	t.Setenv("MEETINGS_TABLE", "meetings")
	t.Setenv("DOCUMENTS_TABLE", "")
	t.Setenv("CONVERSATIONS_TABLE", "conversations")
	if _, err := StorageNames(); err == nil {
		t.Fatalf("expected missing storage config")
	}

	t.Setenv("DOCUMENTS_TABLE", "documents")
	t.Setenv("SYNC_QUEUE", "")
	n, err := StorageNames()
	if err != nil {
		t.Fatalf("storage names: %v", err)
	}
	if n.Documents != "documents" || n.SyncQueue != "" {
		t.Fatalf("unexpected names: %+v", n)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("X_TTL", "")
	if d, err := Duration("X_TTL", time.Hour); err != nil || d != time.Hour {
		t.Fatalf("expected default, got %v, %v", d, err)
	}
	t.Setenv("X_TTL", "90s")
	if d, err := Duration("X_TTL", time.Hour); err != nil || d != 90*time.Second {
		t.Fatalf("expected 90s, got %v, %v", d, err)
	}
	for _, bad := range []string{"soon", "0s", "-1m"} {
		t.Setenv("X_TTL", bad)
		if _, err := Duration("X_TTL", time.Hour); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := RedisOptions("redis://:pw@localhost:6380/2")
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts, err = RedisOptions("cache.example.net:6380,password=secret,ssl=True,abortConnect=False")
	if err != nil {
		t.Fatalf("managed: %v", err)
	}
	if opts.Addr != "cache.example.net:6380" || opts.Password != "secret" || opts.TLSConfig == nil {
		t.Fatalf("unexpected managed options: %+v", opts)
	}

	if _, err := RedisOptions(""); err == nil {
		t.Fatalf("expected missing redis config")
	}
}

func TestKanbanOptions(t *testing.T) {
	t.Setenv("KANBAN_BASE_URL", "http://localhost:9999")
	t.Setenv("KANBAN_TIMEOUT", "")
	t.Setenv("KANBAN_RETRY_EMPTY", "true")
	opts, err := KanbanOptions(log.New())
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	// logger, base url, timeout, retry policy
	if len(opts) != 4 {
		t.Fatalf("expected 4 options, got %d", len(opts))
	}

	t.Setenv("KANBAN_RETRY_EMPTY", "maybe")
	if _, err := KanbanOptions(log.New()); err == nil {
		t.Fatalf("expected bad bool error")
	}
	t.Setenv("KANBAN_RETRY_EMPTY", "")
	t.Setenv("KANBAN_TIMEOUT", "fast")
	if _, err := KanbanOptions(log.New()); err == nil {
		t.Fatalf("expected bad timeout error")
	}
}

func TestListenAddr(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")
	if got := ListenAddr(); got != ":7071" {
		t.Fatalf("expected functions port, got %s", got)
	}
	t.Setenv("PORT", "9000")
	if got := ListenAddr(); got != ":9000" {
		t.Fatalf("expected PORT, got %s", got)
	}
}
