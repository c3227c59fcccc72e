package board

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"

	"aura-api/domain"
)

var _ API = (*fakeBoard)(nil)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func TestEnsureTaskCreatesHierarchyOnEmptyBoard(t *testing.T) {
	fb := newFakeBoard()
	s := NewSynchronizer(fb, quietLogger())

	res, err := s.EnsureTask(context.Background(), TaskRequest{BoardID: "board-1", Person: "Taran", Text: "fix the login bug"})
	if err != nil {
		t.Fatalf("EnsureTask: %v", err)
	}
	if !reflect.DeepEqual(res.Created, []string{LevelList, LevelCard, LevelChecklist}) {
		t.Fatalf("unexpected created levels %v", res.Created)
	}
	if len(fb.lists) != 1 || fb.lists[0].Name != "Taran's Todo" {
		t.Fatalf("unexpected lists %#v", fb.lists)
	}
	if len(fb.cards) != 1 || fb.cards[0].Name != "Taran's Todo" || fb.cards[0].IDList != res.ListID {
		t.Fatalf("unexpected cards %#v", fb.cards)
	}
	if len(fb.checklists) != 1 || fb.checklists[0].Name != "Tasks" {
		t.Fatalf("unexpected checklists %#v", fb.checklists)
	}
	items := fb.checklists[0].CheckItems
	if len(items) != 1 || items[0].Name != "fix the login bug" || items[0].ID != res.ItemID {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestEnsureTaskIsIdempotentOnHierarchy(t *testing.T) {
	fb := newFakeBoard()
	s := NewSynchronizer(fb, quietLogger())
	ctx := context.Background()
	req := TaskRequest{BoardID: "board-1", Person: "Taran", Text: "fix the login bug"}

	first, err := s.EnsureTask(ctx, req)
	if err != nil {
		t.Fatalf("first EnsureTask: %v", err)
	}
	second, err := s.EnsureTask(ctx, req)
	if err != nil {
		t.Fatalf("second EnsureTask: %v", err)
	}
	if first.ListID != second.ListID || first.CardID != second.CardID || first.ChecklistID != second.ChecklistID {
		t.Fatalf("hierarchy changed between calls: %#v vs %#v", first, second)
	}
	if len(second.Created) != 0 {
		t.Fatalf("second call should only add an item, created %v", second.Created)
	}
	if fb.itemCount() != 2 {
		t.Fatalf("items are append-only, expected 2 got %d", fb.itemCount())
	}
}

func TestEnsureTaskReusesFuzzyMatchedList(t *testing.T) {
	fb := newFakeBoard()
	fb.lists = []domain.List{{ID: "l-closed", Name: "Taran's Todo", Closed: true}, {ID: "l-open", Name: "taran's todo"}}
	s := NewSynchronizer(fb, quietLogger())

	res, err := s.EnsureTask(context.Background(), TaskRequest{BoardID: "board-1", Person: "Taran", Text: "ship it"})
	if err != nil {
		t.Fatalf("EnsureTask: %v", err)
	}
	if res.ListID != "l-open" {
		t.Fatalf("expected open list to be reused, got %s", res.ListID)
	}
	if res.Created[0] != LevelCard {
		t.Fatalf("list must not be created, created %v", res.Created)
	}
}

func TestEnsureTaskAbortsOnRemoteErrorAndResumes(t *testing.T) {
	fb := newFakeBoard()
	remote := &domain.RemoteServiceError{Status: 500, Method: "POST", Path: "/cards/x/checklists", Message: "boom"}
	fb.failOn["CreateChecklist"] = remote
	s := NewSynchronizer(fb, quietLogger())
	ctx := context.Background()
	req := TaskRequest{BoardID: "board-1", Person: "Garv", Text: "write docs", ChecklistName: "Docs"}

	res, err := s.EnsureTask(ctx, req)
	if !errors.Is(err, remote) {
		t.Fatalf("expected remote error passed through, got %v", err)
	}
	if res.ListID == "" || res.CardID == "" || res.ChecklistID != "" {
		t.Fatalf("unexpected partial result %#v", res)
	}
	if len(fb.lists) != 1 || len(fb.cards) != 1 {
		t.Fatalf("partial hierarchy must stay in place")
	}

	delete(fb.failOn, "CreateChecklist")
	res2, err := s.EnsureTask(ctx, req)
	if err != nil {
		t.Fatalf("retry EnsureTask: %v", err)
	}
	if res2.ListID != res.ListID || res2.CardID != res.CardID {
		t.Fatalf("retry must reuse existing levels")
	}
	if !reflect.DeepEqual(res2.Created, []string{LevelChecklist}) {
		t.Fatalf("retry should start at the first missing level, created %v", res2.Created)
	}
	if fb.checklists[0].Name != "Docs" {
		t.Fatalf("custom checklist name ignored: %s", fb.checklists[0].Name)
	}
}

func TestEnsureTaskAppendsDueSuffix(t *testing.T) {
	fb := newFakeBoard()
	s := NewSynchronizer(fb, quietLogger())
	_, err := s.EnsureTask(context.Background(), TaskRequest{BoardID: "board-1", Person: "Taran", Text: "review PR", Due: "Friday"})
	if err != nil {
		t.Fatalf("EnsureTask: %v", err)
	}
	if got := fb.checklists[0].CheckItems[0].Name; got != "review PR (Due: Friday)" {
		t.Fatalf("unexpected item name %q", got)
	}
}

func TestEnsureTaskValidatesInput(t *testing.T) {
	s := NewSynchronizer(newFakeBoard(), quietLogger())
	ctx := context.Background()

	var amb *domain.AmbiguousInputError
	if _, err := s.EnsureTask(ctx, TaskRequest{BoardID: "b", Text: "x"}); !errors.As(err, &amb) {
		t.Fatalf("missing person should be ambiguous, got %v", err)
	}
	if _, err := s.EnsureTask(ctx, TaskRequest{BoardID: "b", Person: "Taran", Text: " "}); !errors.As(err, &amb) {
		t.Fatalf("missing text should be ambiguous, got %v", err)
	}
	var cfg *domain.ConfigurationError
	if _, err := s.EnsureTask(ctx, TaskRequest{Person: "Taran", Text: "x"}); !errors.As(err, &cfg) {
		t.Fatalf("missing board should be a configuration error, got %v", err)
	}
}
