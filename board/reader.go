package board

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"aura-api/domain"
)

// snapshotFetchLimit bounds concurrent per-list card fetches.
const snapshotFetchLimit = 4

// Reader answers read-only questions about a board.
type Reader struct {
	api API
	loc *time.Location
	now func() time.Time
}

// NewReader returns a Reader rendering times in loc.
func NewReader(api API, loc *time.Location) *Reader {
	if loc == nil {
		loc = time.UTC
	}
	return &Reader{api: api, loc: loc, now: time.Now}
}

// Location is the zone deadlines are rendered in.
func (r *Reader) Location() *time.Location { return r.loc }

// Snapshot is a board with its lists and the cards of every list.
type Snapshot struct {
	Board       domain.Board             `json:"board"`
	Lists       []domain.List            `json:"lists"`
	CardsByList map[string][]domain.Card `json:"cards_by_list"`
}

// Snapshot fetches the board, its lists and each list's cards.
func (r *Reader) Snapshot(ctx context.Context, boardID string) (Snapshot, error) {
	b, err := r.api.Board(ctx, boardID)
	if err != nil {
		return Snapshot{}, err
	}
	lists, err := r.api.Lists(ctx, boardID)
	if err != nil {
		return Snapshot{}, err
	}

	cards := make([][]domain.Card, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotFetchLimit)
	for i, l := range lists {
		g.Go(func() error {
			cs, err := r.api.ListCards(gctx, l.ID)
			if err != nil {
				return err
			}
			cards[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Board: b, Lists: lists, CardsByList: make(map[string][]domain.Card, len(lists))}
	for i, l := range lists {
		if cards[i] == nil {
			cards[i] = []domain.Card{}
		}
		snap.CardsByList[l.ID] = cards[i]
	}
	return snap, nil
}

// Deadline is a card with its due date, if it has one.
type Deadline struct {
	CardID    string     `json:"card_id"`
	Card      string     `json:"card"`
	Due       *time.Time `json:"due,omitempty"`
	Remaining string     `json:"time_remaining,omitempty"`
	Overdue   bool       `json:"overdue"`

	left time.Duration
}

// Deadlines lists cards with their time remaining, soonest first. Cards
// without a due date come last. A non-empty nameFilter keeps only cards
// whose name matches it.
func (r *Reader) Deadlines(ctx context.Context, boardID, nameFilter string) ([]Deadline, error) {
	cards, err := r.api.BoardCards(ctx, boardID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	filter := strings.TrimSpace(nameFilter)
	lf := strings.ToLower(filter)
	out := make([]Deadline, 0, len(cards))
	for _, c := range cards {
		if c.Closed {
			continue
		}
		if filter != "" && rank(filter, lf, c.Name) == NoMatch {
			continue
		}
		d := Deadline{CardID: c.ID, Card: c.Name}
		if due, ok := ParseDue(c.Due, r.loc); ok {
			d.Due = &due
			d.left = due.Sub(now)
			d.Remaining = FormatDuration(d.left)
			d.Overdue = d.left < 0
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Due == nil || b.Due == nil {
			return a.Due != nil && b.Due == nil
		}
		return a.left < b.left
	})
	return out, nil
}

// TaskList is the content of a person's todo card.
type TaskList struct {
	Found bool          `json:"found"`
	Card  domain.Card   `json:"card"`
	Tasks []domain.Task `json:"tasks"`
}

// UserTasks returns every checklist item on the person's todo card.
func (r *Reader) UserTasks(ctx context.Context, boardID, person string) (TaskList, error) {
	cards, err := r.api.BoardCards(ctx, boardID)
	if err != nil {
		return TaskList{}, err
	}
	card, m := ResolveTodoCard(person, cards)
	if !m.Found {
		return TaskList{Tasks: []domain.Task{}}, nil
	}
	checklists, err := r.api.CardChecklists(ctx, card.ID)
	if err != nil {
		return TaskList{}, err
	}
	out := TaskList{Found: true, Card: card, Tasks: []domain.Task{}}
	for _, cl := range checklists {
		for _, it := range cl.CheckItems {
			out.Tasks = append(out.Tasks, domain.Task{
				ID:          it.ID,
				Name:        it.Name,
				Completed:   it.Done(),
				ChecklistID: cl.ID,
				Checklist:   cl.Name,
				CardID:      card.ID,
				CardName:    card.Name,
			})
		}
	}
	return out, nil
}

// SetTaskState checks or unchecks an item on a card.
func (r *Reader) SetTaskState(ctx context.Context, cardID, itemID string, complete bool) (domain.CheckItem, error) {
	state := domain.StateIncomplete
	if complete {
		state = domain.StateComplete
	}
	return r.api.SetCheckItemState(ctx, cardID, itemID, state)
}

// ListContent resolves a list by name and returns its cards.
func (r *Reader) ListContent(ctx context.Context, boardID, listName string) (domain.List, []domain.Card, error) {
	lists, err := r.api.Lists(ctx, boardID)
	if err != nil {
		return domain.List{}, nil, err
	}
	list, m := Resolve(listName, lists)
	if !m.Found {
		return domain.List{}, nil, domain.Ambiguous("no list matching %q on this board", listName)
	}
	cards, err := r.api.ListCards(ctx, list.ID)
	if err != nil {
		return domain.List{}, nil, err
	}
	return list, cards, nil
}

// CardChecklists groups a card with its checklists.
type CardChecklists struct {
	Card       domain.Card        `json:"card"`
	Checklists []domain.Checklist `json:"checklists"`
}

// Checklists returns every checklist on the board grouped by card, in card order.
func (r *Reader) Checklists(ctx context.Context, boardID string) ([]CardChecklists, error) {
	var (
		cards      []domain.Card
		checklists []domain.Checklist
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cards, err = r.api.BoardCards(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		checklists, err = r.api.BoardChecklists(gctx, boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCard := make(map[string][]domain.Checklist, len(cards))
	for _, cl := range checklists {
		byCard[cl.IDCard] = append(byCard[cl.IDCard], cl)
	}
	out := make([]CardChecklists, 0, len(byCard))
	for _, c := range cards {
		if cls, ok := byCard[c.ID]; ok {
			out = append(out, CardChecklists{Card: c, Checklists: cls})
		}
	}
	return out, nil
}

// FindCard resolves a card on the board by name.
func (r *Reader) FindCard(ctx context.Context, boardID, name string) (domain.Card, error) {
	cards, err := r.api.BoardCards(ctx, boardID)
	if err != nil {
		return domain.Card{}, err
	}
	card, m := Resolve(name, cards)
	if !m.Found {
		return domain.Card{}, domain.Ambiguous("no card matching %q on this board", name)
	}
	return card, nil
}

// CardComments resolves a card by name and returns its comments.
func (r *Reader) CardComments(ctx context.Context, boardID, name string) (domain.Card, []domain.Comment, error) {
	card, err := r.FindCard(ctx, boardID, name)
	if err != nil {
		return domain.Card{}, nil, err
	}
	comments, err := r.api.CardComments(ctx, card.ID)
	if err != nil {
		return domain.Card{}, nil, err
	}
	return card, comments, nil
}
