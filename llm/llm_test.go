package llm

import (
	"context"
	"errors"
	"testing"

	"aura-api/domain"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":{\"b\":2}}\n```", want: `{"a":{"b":2}}`},
		{name: "prose", in: `Sure! Here it is: {"name":"x"} hope that helps`, want: `{"name":"x"}`},
		{name: "brace in string", in: `{"text":"use } carefully"}`, want: `{"text":"use } carefully"}`},
		{name: "unbalanced", in: `{"a":1`, want: ""},
		{name: "none", in: `no json here`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractObject(tt.in); got != tt.want {
				t.Fatalf("ExtractObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	if got := ExtractArray("```\n[\"get_checklist\", \"get_deadline\"]\n```"); got != `["get_checklist", "get_deadline"]` {
		t.Fatalf("unexpected array %q", got)
	}
}

func TestCallWrapsErrors(t *testing.T) {
	_, err := Call(context.Background(), Func(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}), "hi")
	if !domain.IsModelUnavailable(err) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
	if _, err := Call(context.Background(), nil, "hi"); !domain.IsModelUnavailable(err) {
		t.Fatalf("nil model should be unavailable, got %v", err)
	}
	out, err := Call(context.Background(), Func(func(context.Context, string) (string, error) {
		return "  ok \n", nil
	}), "hi")
	if err != nil || out != "ok" {
		t.Fatalf("Call = %q, %v", out, err)
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), " ", "")
	var cfg *domain.ConfigurationError
	if !errors.As(err, &cfg) || cfg.Setting != domain.SettingGeminiAPIKey {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
