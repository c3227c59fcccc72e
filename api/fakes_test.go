package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"aura-api/domain"
	"aura-api/storage"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// stubAuth maps bearer tokens to identities.
type stubAuth map[string]Identity

func (a stubAuth) IdentityFromAuthHeader(h string) (Identity, error) {
	token, err := bearerToken(h)
	if err != nil {
		return Identity{}, err
	}
	id, ok := a[token]
	if !ok {
		return Identity{}, errors.New("invalid token")
	}
	return id, nil
}

type memStore struct {
	mu            sync.Mutex
	users         map[string]domain.User
	meetings      map[string]domain.Meeting
	documents     map[string]domain.Document
	conversations map[string]domain.Conversation
	jobs          []domain.SyncJob
	enqueueErr    error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]domain.User{},
		meetings:      map[string]domain.Meeting{},
		documents:     map[string]domain.Document{},
		conversations: map[string]domain.Conversation{},
	}
}

func (m *memStore) GetUser(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) EnsureUser(_ context.Context, claims domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[claims.ID]
	if !ok {
		u = domain.User{ID: claims.ID, Persona: domain.PersonaEmployee}
	}
	if claims.Name != "" {
		u.Name = claims.Name
	}
	if claims.Email != "" {
		u.Email = claims.Email
	}
	if claims.Persona != "" {
		u.Persona = claims.Persona
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		u.Settings = domain.Settings{}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateSettings(_ context.Context, userID string, upd domain.SettingsUpdate) (domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.Settings{}, domain.ErrNotFound
	}
	u.Settings = u.Settings.Apply(upd)
	m.users[userID] = u
	return u.Settings, nil
}

func (m *memStore) SaveMeeting(_ context.Context, mt domain.Meeting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meetings[mt.ID] = mt
	return nil
}

func (m *memStore) GetMeeting(_ context.Context, id string) (domain.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.meetings[id]
	if !ok {
		return domain.Meeting{}, domain.ErrNotFound
	}
	return mt, nil
}

func (m *memStore) ListMeetings(_ context.Context, f storage.MeetingFilter) ([]domain.Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Meeting
	for _, mt := range m.meetings {
		if f.WorkspaceID != "" && mt.WorkspaceID != f.WorkspaceID {
			continue
		}
		if f.CreatedBy != "" && mt.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) SaveDocument(_ context.Context, d domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[d.ID] = d
	return nil
}

func (m *memStore) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Document
	for _, d := range m.documents {
		if d.UploadedBy == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteDocument(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.UploadedBy != userID {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *memStore) GetConversation(_ context.Context, userID, product string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[userID+"/"+product]; ok {
		return c, nil
	}
	return domain.Conversation{UserID: userID, Product: product, Messages: []domain.Message{}}, nil
}

func (m *memStore) SaveConversation(_ context.Context, conv domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.UserID+"/"+conv.Product] = conv
	return nil
}

func (m *memStore) EnqueueSyncJobs(_ context.Context, jobs []domain.SyncJob) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		j.ID = fmt.Sprintf("job-%d", len(m.jobs)+1)
		m.jobs = append(m.jobs, j)
		ids = append(ids, j.ID)
	}
	return ids, nil
}

// memBoard is a minimal in-memory board.
type memBoard struct {
	mu         sync.Mutex
	seq        int
	lists      []domain.List
	cards      []domain.Card
	checklists []domain.Checklist
	comments   map[string][]domain.Comment
}

func newMemBoard() *memBoard {
	return &memBoard{comments: map[string][]domain.Comment{}}
}

func (b *memBoard) next(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s%d", prefix, b.seq)
}

func (b *memBoard) Board(_ context.Context, id string) (domain.Board, error) {
	return domain.Board{ID: id, Name: "Sprint"}, nil
}

func (b *memBoard) Lists(context.Context, string) ([]domain.List, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.List{}, b.lists...), nil
}

func (b *memBoard) CreateList(_ context.Context, boardID, name string) (domain.List, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := domain.List{ID: b.next("list-"), Name: name, IDBoard: boardID}
	b.lists = append(b.lists, l)
	return l, nil
}

func (b *memBoard) ListCards(_ context.Context, listID string) ([]domain.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Card{}
	for _, c := range b.cards {
		if c.IDList == listID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (b *memBoard) BoardCards(context.Context, string) ([]domain.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Card{}, b.cards...), nil
}

func (b *memBoard) CreateCard(_ context.Context, listID, name string) (domain.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := domain.Card{ID: b.next("card-"), Name: name, IDList: listID}
	b.cards = append(b.cards, c)
	return c, nil
}

func (b *memBoard) CardChecklists(_ context.Context, cardID string) ([]domain.Checklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Checklist{}
	for _, cl := range b.checklists {
		if cl.IDCard == cardID {
			out = append(out, cl)
		}
	}
	return out, nil
}

func (b *memBoard) BoardChecklists(context.Context, string) ([]domain.Checklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Checklist{}, b.checklists...), nil
}

func (b *memBoard) CreateChecklist(_ context.Context, cardID, name string) (domain.Checklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cl := domain.Checklist{ID: b.next("cl-"), Name: name, IDCard: cardID}
	b.checklists = append(b.checklists, cl)
	return cl, nil
}

func (b *memBoard) CheckItems(_ context.Context, checklistID string) ([]domain.CheckItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cl := range b.checklists {
		if cl.ID == checklistID {
			return append([]domain.CheckItem{}, cl.CheckItems...), nil
		}
	}
	return []domain.CheckItem{}, nil
}

func (b *memBoard) CreateCheckItem(_ context.Context, checklistID, name string) (domain.CheckItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.checklists {
		if b.checklists[i].ID == checklistID {
			it := domain.CheckItem{ID: b.next("item-"), Name: name, State: domain.StateIncomplete, IDChecklist: checklistID}
			b.checklists[i].CheckItems = append(b.checklists[i].CheckItems, it)
			return it, nil
		}
	}
	return domain.CheckItem{}, &domain.RemoteServiceError{Status: 404, Method: "POST", Path: "/checklists/" + checklistID + "/checkItems", Message: "invalid id"}
}

func (b *memBoard) SetCheckItemState(_ context.Context, cardID, itemID string, state domain.CheckItemState) (domain.CheckItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.checklists {
		if b.checklists[i].IDCard != cardID {
			continue
		}
		for j := range b.checklists[i].CheckItems {
			if b.checklists[i].CheckItems[j].ID == itemID {
				b.checklists[i].CheckItems[j].State = state
				return b.checklists[i].CheckItems[j], nil
			}
		}
	}
	return domain.CheckItem{}, &domain.RemoteServiceError{Status: 404, Method: "PUT", Path: "/cards/" + cardID + "/checkItem/" + itemID, Message: "invalid id"}
}

func (b *memBoard) CardComments(_ context.Context, cardID string) ([]domain.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Comment{}, b.comments[cardID]...), nil
}

// items returns every checklist item keyed by card name.
func (b *memBoard) items() map[string][]domain.CheckItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := map[string]string{}
	for _, c := range b.cards {
		names[c.ID] = c.Name
	}
	out := map[string][]domain.CheckItem{}
	for _, cl := range b.checklists {
		out[names[cl.IDCard]] = append(out[names[cl.IDCard]], cl.CheckItems...)
	}
	return out
}
