package kanban

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"aura-api/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := log.New()
	logger.SetOutput(io.Discard)
	opts = append([]Option{WithBaseURL(srv.URL), WithLogger(logger), WithRetryPolicy(RetryPolicy{Attempts: 3, Delay: time.Millisecond})}, opts...)
	c, err := New("the-key", "the-token", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClientSendsCredentialsOnEveryCall(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "the-key" || q.Get("token") != "the-token" {
			t.Errorf("missing credentials on %s %s", r.Method, r.URL.Path)
		}
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet:
			_, _ = io.WriteString(w, `{"data":[{"id":"l1","name":"Taran's Todo"}]}`)
		default:
			if q.Get("idList") != "l1" || q.Get("name") != "Taran's Todo" {
				t.Errorf("unexpected create params %v", q)
			}
			_, _ = io.WriteString(w, `{"id":"c9","name":"Taran's Todo","idList":"l1"}`)
		}
	})

	ctx := context.Background()
	lists, err := c.Lists(ctx, "board-1")
	if err != nil {
		t.Fatalf("Lists: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != "l1" {
		t.Fatalf("unexpected lists %#v", lists)
	}
	card, err := c.CreateCard(ctx, "l1", "Taran's Todo")
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.ID != "c9" || card.IDList != "l1" {
		t.Fatalf("unexpected card %#v", card)
	}
	want := []string{"GET /boards/board-1/lists", "POST /cards"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", seen)
	}
}

func TestClientSurfacesRemoteErrorVerbatim(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "invalid key\n")
	})

	_, err := c.CreateCheckItem(context.Background(), "cl1", "fix the login bug")
	var remote *domain.RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if remote.Status != http.StatusUnauthorized || remote.Message != "invalid key" {
		t.Fatalf("unexpected error %#v", remote)
	}
	if !remote.CallerFault() {
		t.Fatalf("401 should be reported as a caller fault")
	}
	if calls != 1 {
		t.Fatalf("writes must not be retried, calls=%d", calls)
	}
}

func TestClientRetriesNullReads(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, "null")
			return
		}
		_, _ = io.WriteString(w, `[{"id":"cl1","name":"Tasks","checkItems":[{"id":"i1","name":"a","state":"complete"}]}]`)
	})

	checklists, err := c.CardChecklists(context.Background(), "card")
	if err != nil {
		t.Fatalf("CardChecklists: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, calls=%d", calls)
	}
	if len(checklists) != 1 || !checklists[0].CheckItems[0].Done() {
		t.Fatalf("unexpected checklists %#v", checklists)
	}
}

func TestClientTimeoutDoesNotLeakCredentials(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, WithTimeout(20*time.Millisecond))
	defer close(release)

	_, err := c.Lists(context.Background(), "board-1")
	var remote *domain.RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if remote.Status != 0 || remote.Err == nil {
		t.Fatalf("expected transport failure, got %#v", remote)
	}
	if strings.Contains(err.Error(), "the-token") || strings.Contains(err.Error(), "the-key") {
		t.Fatalf("error leaks credentials: %v", err)
	}
}

func TestClientSetCheckItemState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/cards/card-1/checkItem/item-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("state") != "complete" {
			t.Errorf("unexpected state %q", r.URL.Query().Get("state"))
		}
		_, _ = io.WriteString(w, `{"id":"item-1","name":"x","state":"complete"}`)
	})

	item, err := c.SetCheckItemState(context.Background(), "card-1", "item-1", domain.StateComplete)
	if err != nil {
		t.Fatalf("SetCheckItemState: %v", err)
	}
	if !item.Done() {
		t.Fatalf("expected completed item, got %#v", item)
	}
}

func TestClientCardComments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter") != "commentCard" {
			t.Errorf("missing comment filter")
		}
		_, _ = io.WriteString(w, `[{"id":"a1","date":"2024-01-01T00:00:00Z","data":{"text":"looks good"},"memberCreator":{"fullName":"Garv"}}]`)
	})

	comments, err := c.CardComments(context.Background(), "card-1")
	if err != nil {
		t.Fatalf("CardComments: %v", err)
	}
	if len(comments) != 1 || comments[0].Text != "looks good" || comments[0].Author != "Garv" {
		t.Fatalf("unexpected comments %#v", comments)
	}
}

func TestClientRecordsErrorSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.CreateList(context.Background(), "board-1", "Taran's Todo"); err == nil {
		t.Fatalf("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "kanban POST" || spans[0].Status.Code != codes.Error {
		t.Fatalf("unexpected span %s status %v", spans[0].Name, spans[0].Status.Code)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New("", "tok")
	var cfg *domain.ConfigurationError
	if !errors.As(err, &cfg) || cfg.Setting != domain.SettingTrelloAPIKey {
		t.Fatalf("expected missing key error, got %v", err)
	}
	_, err = NewFromSettings(domain.Settings{TrelloAPIKey: "k"})
	if !errors.As(err, &cfg) || cfg.Setting != domain.SettingTrelloToken {
		t.Fatalf("expected missing token error, got %v", err)
	}
}
