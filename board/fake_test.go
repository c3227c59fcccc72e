package board

import (
	"context"
	"fmt"
	"sync"

	"aura-api/domain"
)

// fakeBoard is an in-memory board keyed by id. failOn makes the named call
// fail with a remote error.
type fakeBoard struct {
	mu         sync.Mutex
	seq        int
	board      domain.Board
	lists      []domain.List
	cards      []domain.Card
	checklists []domain.Checklist
	comments   map[string][]domain.Comment
	failOn     map[string]error
	calls      []string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{board: domain.Board{ID: "board-1", Name: "Sprint"}, failOn: map[string]error{}, comments: map[string][]domain.Comment{}}
}

func (f *fakeBoard) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeBoard) record(call string) error {
	f.calls = append(f.calls, call)
	if err, ok := f.failOn[call]; ok {
		return err
	}
	return nil
}

func (f *fakeBoard) Board(_ context.Context, id string) (domain.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Board"); err != nil {
		return domain.Board{}, err
	}
	return f.board, nil
}

func (f *fakeBoard) Lists(_ context.Context, boardID string) ([]domain.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Lists"); err != nil {
		return nil, err
	}
	return append([]domain.List{}, f.lists...), nil
}

func (f *fakeBoard) CreateList(_ context.Context, boardID, name string) (domain.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateList"); err != nil {
		return domain.List{}, err
	}
	l := domain.List{ID: f.next("list-"), Name: name, IDBoard: boardID}
	f.lists = append(f.lists, l)
	return l, nil
}

func (f *fakeBoard) ListCards(_ context.Context, listID string) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCards"); err != nil {
		return nil, err
	}
	out := []domain.Card{}
	for _, c := range f.cards {
		if c.IDList == listID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBoard) BoardCards(_ context.Context, boardID string) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BoardCards"); err != nil {
		return nil, err
	}
	return append([]domain.Card{}, f.cards...), nil
}

func (f *fakeBoard) CreateCard(_ context.Context, listID, name string) (domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCard"); err != nil {
		return domain.Card{}, err
	}
	c := domain.Card{ID: f.next("card-"), Name: name, IDList: listID}
	f.cards = append(f.cards, c)
	return c, nil
}

func (f *fakeBoard) CardChecklists(_ context.Context, cardID string) ([]domain.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CardChecklists"); err != nil {
		return nil, err
	}
	out := []domain.Checklist{}
	for _, cl := range f.checklists {
		if cl.IDCard == cardID {
			out = append(out, cl)
		}
	}
	return out, nil
}

func (f *fakeBoard) BoardChecklists(_ context.Context, boardID string) ([]domain.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BoardChecklists"); err != nil {
		return nil, err
	}
	return append([]domain.Checklist{}, f.checklists...), nil
}

func (f *fakeBoard) CreateChecklist(_ context.Context, cardID, name string) (domain.Checklist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateChecklist"); err != nil {
		return domain.Checklist{}, err
	}
	cl := domain.Checklist{ID: f.next("cl-"), Name: name, IDCard: cardID}
	f.checklists = append(f.checklists, cl)
	return cl, nil
}

func (f *fakeBoard) CheckItems(_ context.Context, checklistID string) ([]domain.CheckItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CheckItems"); err != nil {
		return nil, err
	}
	for _, cl := range f.checklists {
		if cl.ID == checklistID {
			return append([]domain.CheckItem{}, cl.CheckItems...), nil
		}
	}
	return []domain.CheckItem{}, nil
}

func (f *fakeBoard) CreateCheckItem(_ context.Context, checklistID, name string) (domain.CheckItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCheckItem"); err != nil {
		return domain.CheckItem{}, err
	}
	for i := range f.checklists {
		if f.checklists[i].ID == checklistID {
			it := domain.CheckItem{ID: f.next("item-"), Name: name, State: domain.StateIncomplete, IDChecklist: checklistID}
			f.checklists[i].CheckItems = append(f.checklists[i].CheckItems, it)
			return it, nil
		}
	}
	return domain.CheckItem{}, &domain.RemoteServiceError{Status: 404, Method: "POST", Path: "/checklists/" + checklistID + "/checkItems", Message: "invalid id"}
}

func (f *fakeBoard) SetCheckItemState(_ context.Context, cardID, itemID string, state domain.CheckItemState) (domain.CheckItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetCheckItemState"); err != nil {
		return domain.CheckItem{}, err
	}
	for i := range f.checklists {
		if f.checklists[i].IDCard != cardID {
			continue
		}
		for j := range f.checklists[i].CheckItems {
			if f.checklists[i].CheckItems[j].ID == itemID {
				f.checklists[i].CheckItems[j].State = state
				return f.checklists[i].CheckItems[j], nil
			}
		}
	}
	return domain.CheckItem{}, &domain.RemoteServiceError{Status: 404, Method: "PUT", Path: "/cards/" + cardID + "/checkItem/" + itemID, Message: "invalid id"}
}

func (f *fakeBoard) CardComments(_ context.Context, cardID string) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CardComments"); err != nil {
		return nil, err
	}
	return append([]domain.Comment{}, f.comments[cardID]...), nil
}

func (f *fakeBoard) itemCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, cl := range f.checklists {
		n += len(cl.CheckItems)
	}
	return n
}
