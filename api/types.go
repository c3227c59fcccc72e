package api

import (
	"context"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/kanban"
	"aura-api/storage"
)

// Store abstracts persistence for handlers.
type Store interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	EnsureUser(ctx context.Context, claims domain.User) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateSettings(ctx context.Context, userID string, upd domain.SettingsUpdate) (domain.Settings, error)

	SaveMeeting(ctx context.Context, m domain.Meeting) error
	GetMeeting(ctx context.Context, id string) (domain.Meeting, error)
	ListMeetings(ctx context.Context, f storage.MeetingFilter) ([]domain.Meeting, error)

	SaveDocument(ctx context.Context, d domain.Document) error
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error

	GetConversation(ctx context.Context, userID, product string) (domain.Conversation, error)
	SaveConversation(ctx context.Context, conv domain.Conversation) error

	EnqueueSyncJobs(ctx context.Context, jobs []domain.SyncJob) ([]string, error)
}

// Authenticator is implemented by types able to identify callers from headers.
type Authenticator interface {
	IdentityFromAuthHeader(string) (Identity, error)
}

// Deduper prevents processing of duplicate requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
	// AddMany records several keys at once and reports which were new.
	AddMany(ctx context.Context, userID string, keys []string) ([]bool, error)
}

// BoardFactory builds a board client from the caller's credentials.
type BoardFactory func(s domain.Settings) (board.API, error)

var _ board.API = (*kanban.Client)(nil)

// KanbanBoards returns a BoardFactory backed by the REST client.
func KanbanBoards(opts ...kanban.Option) BoardFactory {
	return func(s domain.Settings) (board.API, error) {
		c, err := kanban.NewFromSettings(s, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
