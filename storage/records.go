package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aura-api/domain"
)

// noWorkspace partitions meetings created without a board.
const noWorkspace = "none"

// MaxConversationMessages bounds the stored QA history.
const MaxConversationMessages = 50

// MeetingFilter narrows ListMeetings. Empty fields match everything.
type MeetingFilter struct {
	WorkspaceID string
	CreatedBy   string
}

func meetingPartition(workspaceID string) string {
	if workspaceID == "" {
		return noWorkspace
	}
	return workspaceID
}

func encodeMeeting(m domain.Meeting) (props, error) {
	p := newProps(meetingPartition(m.WorkspaceID), m.ID)
	p["Title"] = m.Title
	p["CreatedBy"] = m.CreatedBy
	p["WorkspaceId"] = m.WorkspaceID
	p["Filename"] = m.Filename
	p.setTime("Date", m.Date)
	p.putText("Summary", m.Summary)
	p.putText("Transcript", m.Transcript)
	if err := p.putJSON("Participants", m.Participants); err != nil {
		return nil, err
	}
	if err := p.putJSON("ActionItems", m.ActionItems); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeMeeting(p props) (domain.Meeting, error) {
	m := domain.Meeting{
		ID:           p.str("RowKey"),
		Title:        p.str("Title"),
		Date:         p.timestamp("Date"),
		Summary:      p.text("Summary"),
		Transcript:   p.text("Transcript"),
		CreatedBy:    p.str("CreatedBy"),
		WorkspaceID:  p.str("WorkspaceId"),
		Filename:     p.str("Filename"),
		Participants: []string{},
		ActionItems:  []domain.ActionItem{},
	}
	if err := p.decodeJSON("Participants", &m.Participants); err != nil {
		return domain.Meeting{}, fmt.Errorf("meeting %s participants: %w", m.ID, err)
	}
	if err := p.decodeJSON("ActionItems", &m.ActionItems); err != nil {
		return domain.Meeting{}, fmt.Errorf("meeting %s action items: %w", m.ID, err)
	}
	return m, nil
}

// SaveMeeting creates or replaces a meeting.
func (s *Storage) SaveMeeting(ctx context.Context, m domain.Meeting) error {
	p, err := encodeMeeting(m)
	if err != nil {
		return err
	}
	return upsertProps(ctx, s.meetings, p)
}

// GetMeeting looks a meeting up by id in any workspace.
func (s *Storage) GetMeeting(ctx context.Context, id string) (domain.Meeting, error) {
	found, err := listProps(ctx, s.meetings, eq("RowKey", id))
	if err != nil {
		return domain.Meeting{}, err
	}
	if len(found) == 0 {
		return domain.Meeting{}, domain.ErrNotFound
	}
	return decodeMeeting(found[0])
}

// ListMeetings returns matching meetings, newest first.
func (s *Storage) ListMeetings(ctx context.Context, f MeetingFilter) ([]domain.Meeting, error) {
	filter := ""
	if f.WorkspaceID != "" {
		filter = eq("PartitionKey", meetingPartition(f.WorkspaceID))
	}
	if f.CreatedBy != "" {
		if filter != "" {
			filter += " and "
		}
		filter += eq("CreatedBy", f.CreatedBy)
	}
	all, err := listProps(ctx, s.meetings, filter)
	if err != nil {
		return nil, err
	}
	meetings := make([]domain.Meeting, 0, len(all))
	for _, p := range all {
		m, err := decodeMeeting(p)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	newestFirst(meetings, func(m domain.Meeting) time.Time { return m.Date })
	return meetings, nil
}

func encodeDocument(d domain.Document) props {
	p := newProps(d.UploadedBy, d.ID)
	p["Filename"] = d.Filename
	p["WorkspaceId"] = d.WorkspaceID
	p["FileSize"] = d.FileSize
	p.setTime("CreatedAt", d.CreatedAt)
	p.putText("Content", d.Content)
	return p
}

func decodeDocument(p props) domain.Document {
	return domain.Document{
		ID:          p.str("RowKey"),
		Filename:    p.str("Filename"),
		Content:     p.text("Content"),
		UploadedBy:  p.str("PartitionKey"),
		WorkspaceID: p.str("WorkspaceId"),
		CreatedAt:   p.timestamp("CreatedAt"),
		FileSize:    p.number("FileSize"),
	}
}

// SaveDocument stores an uploaded document under its uploader.
func (s *Storage) SaveDocument(ctx context.Context, d domain.Document) error {
	return upsertProps(ctx, s.documents, encodeDocument(d))
}

// ListDocuments returns a user's documents with their content, newest first.
func (s *Storage) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	all, err := listProps(ctx, s.documents, eq("PartitionKey", userID))
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(all))
	for _, p := range all {
		docs = append(docs, decodeDocument(p))
	}
	newestFirst(docs, func(d domain.Document) time.Time { return d.CreatedAt })
	return docs, nil
}

// DeleteDocument removes one of a user's documents.
func (s *Storage) DeleteDocument(ctx context.Context, userID, id string) error {
	return deleteEntity(ctx, s.documents, userID, id)
}

// GetConversation returns the stored history, or an empty conversation.
func (s *Storage) GetConversation(ctx context.Context, userID, product string) (domain.Conversation, error) {
	conv := domain.Conversation{UserID: userID, Product: product, Messages: []domain.Message{}}
	p, err := getProps(ctx, s.conversations, userID, product)
	if errors.Is(err, domain.ErrNotFound) {
		return conv, nil
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if err := p.decodeJSON("Messages", &conv.Messages); err != nil {
		return domain.Conversation{}, fmt.Errorf("conversation %s/%s: %w", userID, product, err)
	}
	conv.UpdatedAt = p.timestamp("UpdatedAt")
	return conv, nil
}

// SaveConversation stores the most recent MaxConversationMessages messages.
func (s *Storage) SaveConversation(ctx context.Context, conv domain.Conversation) error {
	msgs := conv.Messages
	if len(msgs) > MaxConversationMessages {
		msgs = msgs[len(msgs)-MaxConversationMessages:]
	}
	p := newProps(conv.UserID, conv.Product)
	if err := p.putJSON("Messages", msgs); err != nil {
		return err
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	p.setTime("UpdatedAt", updated)
	return upsertProps(ctx, s.conversations, p)
}
