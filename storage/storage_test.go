package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"aura-api/domain"
)

// reload mimics a table round trip so tests see what a read would return.
func reload(t *testing.T, p props) props {
	t.Helper()
	data, err := sonic.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out props
	if err := sonic.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestLongTextIsSplitAcrossProperties(t *testing.T) {
	transcript := strings.Repeat("é", maxPropertyChars) + strings.Repeat("b", 10)
	m := domain.Meeting{
		ID:           "m1",
		Title:        "Planning",
		Date:         time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
		Transcript:   transcript,
		Participants: []string{"Taran"},
		ActionItems:  []domain.ActionItem{{Text: "fix the login bug", Assignee: "Taran", AssignedBy: "Garv"}},
	}
	p, err := encodeMeeting(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if p["PartitionKey"] != noWorkspace {
		t.Fatalf("meetings without a board belong to %q, got %v", noWorkspace, p["PartitionKey"])
	}
	if _, ok := p["Transcript_1"]; !ok {
		t.Fatalf("expected a second transcript property")
	}
	for k, v := range p {
		if s, ok := v.(string); ok && len([]rune(s)) > maxPropertyChars {
			t.Fatalf("property %s holds %d chars", k, len([]rune(s)))
		}
	}

	got, err := decodeMeeting(reload(t, p))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Transcript != transcript || !got.Date.Equal(m.Date) || got.ActionItems[0] != m.ActionItems[0] {
		t.Fatalf("meeting did not survive storage: %#v", got.ActionItems)
	}
}

func TestEntitySizeGuard(t *testing.T) {
	// a 400k-char ASCII transcript is 800k bytes once stored as UTF-16
	fitting := domain.Meeting{ID: "m1", Transcript: strings.Repeat("a", 400_000), Summary: "short"}
	p, err := encodeMeeting(fitting)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := p.fits(); err != nil {
		t.Fatalf("expected meeting to fit, got %v", err)
	}

	tooBig := domain.Document{ID: "d1", UploadedBy: "u1", Content: strings.Repeat("a", 600_000)}
	if err := encodeDocument(tooBig).fits(); !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for a 1.2 MB entity, got %v", err)
	}

	// astral runes take two UTF-16 units
	if got := utf16Bytes("a😀"); got != 6 {
		t.Fatalf("utf16Bytes = %d, want 6", got)
	}

	many := newProps("pk", "rk")
	for i := 0; i < maxEntityProps; i++ {
		many[partName("P", i+1)] = "x"
	}
	if err := many.fits(); !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge for too many properties, got %v", err)
	}
}

func TestDecodeUserDefaultsPersona(t *testing.T) {
	u := decodeUser(props{"PartitionKey": userPartition, "RowKey": "u1", "Name": "Garv", "WorkspaceId": "b1"})
	if u.ID != "u1" || u.Persona != domain.PersonaEmployee || u.Settings.WorkspaceID != "b1" {
		t.Fatalf("unexpected user %#v", u)
	}
}

func TestFilterQuotesValues(t *testing.T) {
	if got := eq("PartitionKey", "o'brien"); got != "PartitionKey eq 'o''brien'" {
		t.Fatalf("unexpected filter %s", got)
	}
}

type fakeQueue struct {
	sent    []string
	deleted []string
	failAt  int
	pending []*azqueue.DequeuedMessage
}

func (f *fakeQueue) EnqueueMessage(_ context.Context, content string, _ *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	if f.failAt >= 0 && len(f.sent) == f.failAt {
		return azqueue.EnqueueMessagesResponse{}, errors.New("enqueue failure")
	}
	f.sent = append(f.sent, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func (f *fakeQueue) DequeueMessage(context.Context, *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error) {
	if len(f.pending) == 0 {
		return azqueue.DequeueMessagesResponse{}, nil
	}
	msg := f.pending[0]
	f.pending = f.pending[1:]
	return azqueue.DequeueMessagesResponse{Messages: []*azqueue.DequeuedMessage{msg}}, nil
}

func (f *fakeQueue) DeleteMessage(_ context.Context, id, _ string, _ *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error) {
	f.deleted = append(f.deleted, id)
	return azqueue.DeleteMessageResponse{}, nil
}

func ptr[T any](v T) *T { return &v }

func TestEnqueueSyncJobsAssignsIDs(t *testing.T) {
	q := &fakeQueue{failAt: -1}
	s := &Storage{syncQueue: q, now: func() time.Time { return time.UnixMilli(1700000000000) }}

	ids, err := s.EnqueueSyncJobs(context.Background(), []domain.SyncJob{
		{Person: "Taran", Text: "fix the login bug"},
		{ID: "fixed", Person: "Garv", Text: "write docs", Timestamp: 5},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(ids) != 2 || ids[0] == "" || ids[1] != "fixed" {
		t.Fatalf("unexpected ids %v", ids)
	}
	var first domain.SyncJob
	if err := sonic.UnmarshalString(q.sent[0], &first); err != nil {
		t.Fatalf("decode sent job: %v", err)
	}
	if first.ID != ids[0] || first.Timestamp != 1700000000000 || first.Person != "Taran" {
		t.Fatalf("unexpected job %#v", first)
	}
}

func TestEnqueueSyncJobsStopsOnFailure(t *testing.T) {
	q := &fakeQueue{failAt: 1}
	s := &Storage{syncQueue: q, now: time.Now}
	ids, err := s.EnqueueSyncJobs(context.Background(), []domain.SyncJob{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if err == nil || len(ids) != 1 || len(q.sent) != 1 {
		t.Fatalf("expected failure after one job, ids=%v sent=%d err=%v", ids, len(q.sent), err)
	}

	if _, err := (&Storage{}).EnqueueSyncJobs(context.Background(), nil); !errors.Is(err, ErrNoQueue) {
		t.Fatalf("expected ErrNoQueue, got %v", err)
	}
}

func TestDequeueAndDeleteSyncJob(t *testing.T) {
	q := &fakeQueue{failAt: -1, pending: []*azqueue.DequeuedMessage{
		{MessageID: ptr("m1"), PopReceipt: ptr("r1"), DequeueCount: ptr(int64(2)), MessageText: ptr(`{"id":"j1","person":"Taran","text":"ship it"}`)},
		{MessageID: ptr("m2"), PopReceipt: ptr("r2"), MessageText: ptr(`not json`)},
	}}
	s := &Storage{syncQueue: q, now: time.Now}
	ctx := context.Background()

	job, err := s.DequeueSyncJob(ctx)
	if err != nil || job == nil {
		t.Fatalf("dequeue: %v %v", job, err)
	}
	if job.Job.ID != "j1" || job.Job.Text != "ship it" || job.DequeueCount != 2 || job.Raw != "" {
		t.Fatalf("unexpected job %#v", job)
	}
	if err := s.DeleteSyncJob(ctx, job); err != nil {
		t.Fatalf("delete: %v", err)
	}

	bad, err := s.DequeueSyncJob(ctx)
	if err != nil || bad.Raw != "not json" {
		t.Fatalf("undecodable message should keep its raw text: %#v %v", bad, err)
	}

	empty, err := s.DequeueSyncJob(ctx)
	if err != nil || empty != nil {
		t.Fatalf("expected empty queue, got %#v %v", empty, err)
	}
	if len(q.deleted) != 1 || q.deleted[0] != "m1" {
		t.Fatalf("unexpected deletes %v", q.deleted)
	}
}
