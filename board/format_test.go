package board

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"aura-api/llm"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{in: -90 * time.Minute, want: "-1h 30m"},
		{in: 90 * time.Minute, want: "1h 30m"},
		{in: 45 * time.Second, want: "45s"},
		{in: 0, want: "0s"},
		{in: -20 * time.Second, want: "-20s"},
		{in: 2*time.Hour + 10*time.Second, want: "2h"},
		{in: 49*time.Hour + 5*time.Minute, want: "2d 1h 5m"},
		{in: 24 * time.Hour, want: "1d"},
		{in: 24*time.Hour + 5*time.Minute, want: "1d 5m"},
		{in: 5*time.Minute + 59*time.Second, want: "5m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDueConvertsToLocation(t *testing.T) {
	loc := LoadLocation(DefaultTimezone)
	got, ok := ParseDue("2024-01-01T00:00:00.000Z", loc)
	if !ok {
		t.Fatalf("expected due date to parse")
	}
	if got.Format("2006-01-02 15:04") != "2024-01-01 05:30" {
		t.Fatalf("expected IST conversion, got %s", got)
	}
	if _, ok := ParseDue("next tuesday", loc); ok {
		t.Fatalf("free text must not parse")
	}
	if _, ok := ParseDue("", loc); ok {
		t.Fatalf("empty due must not parse")
	}
}

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if loc := LoadLocation("Not/AZone"); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
}

func TestRenderDeadlines(t *testing.T) {
	due := time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)
	got := RenderDeadlines([]Deadline{
		{Card: "Login bug", Due: &due, Remaining: "-1h 30m", Overdue: true},
		{Card: "Docs"},
	})
	want := "- Login bug: due 2024-01-01 05:30 UTC (-1h 30m overdue)\n- Docs: no deadline"
	if got != want {
		t.Fatalf("unexpected rendering:\n%s\nwant:\n%s", got, want)
	}
	if RenderDeadlines(nil) != "No cards found." {
		t.Fatalf("unexpected empty rendering")
	}
}

func TestFormatterFallsBackToPlainText(t *testing.T) {
	failing := llm.Func(func(context.Context, string) (string, error) {
		return "", errors.New("model down")
	})
	f := NewFormatter(failing, quietLogger())
	if got := f.Summarize(context.Background(), "deadlines", "- a: no deadline", "when is a due?"); got != "- a: no deadline" {
		t.Fatalf("expected plain fallback, got %q", got)
	}

	var prompt string
	ok := llm.Func(func(_ context.Context, p string) (string, error) {
		prompt = p
		return "Card a has no deadline yet.", nil
	})
	f = NewFormatter(ok, quietLogger())
	if got := f.Summarize(context.Background(), "deadlines", "- a: no deadline", "when is a due?"); got != "Card a has no deadline yet." {
		t.Fatalf("unexpected summary %q", got)
	}
	if !strings.Contains(prompt, "- a: no deadline") || !strings.Contains(prompt, "when is a due?") {
		t.Fatalf("prompt must carry the block and query: %q", prompt)
	}

	if got := NewFormatter(nil, nil).Summarize(context.Background(), "x", "plain", "q"); got != "plain" {
		t.Fatalf("nil model should return plain text, got %q", got)
	}
}
