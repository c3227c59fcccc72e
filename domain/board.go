package domain

import "strings"

// CheckItemState is the completion state of a checklist item.
type CheckItemState string

const (
	StateComplete   CheckItemState = "complete"
	StateIncomplete CheckItemState = "incomplete"
)

// Board is a kanban board on the remote service.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// List is a column on a board.
type List struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Closed  bool    `json:"closed,omitempty"`
	IDBoard string  `json:"idBoard,omitempty"`
	Pos     float64 `json:"pos,omitempty"`
}

// Card is a card inside a list.
type Card struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Desc         string   `json:"desc,omitempty"`
	Due          string   `json:"due,omitempty"`
	Closed       bool     `json:"closed,omitempty"`
	IDList       string   `json:"idList,omitempty"`
	IDBoard      string   `json:"idBoard,omitempty"`
	IDChecklists []string `json:"idChecklists,omitempty"`
}

// Checklist is a named checklist attached to a card.
type Checklist struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IDCard     string      `json:"idCard,omitempty"`
	IDBoard    string      `json:"idBoard,omitempty"`
	CheckItems []CheckItem `json:"checkItems,omitempty"`
}

// CheckItem is a single task line inside a checklist.
type CheckItem struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	State       CheckItemState `json:"state,omitempty"`
	IDChecklist string         `json:"idChecklist,omitempty"`
}

// Comment is a comment left on a card.
type Comment struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
}

func (l List) EntityID() string   { return l.ID }
func (l List) EntityName() string { return l.Name }
func (l List) IsClosed() bool     { return l.Closed }

func (c Card) EntityID() string   { return c.ID }
func (c Card) EntityName() string { return c.Name }
func (c Card) IsClosed() bool     { return c.Closed }

func (c Checklist) EntityID() string   { return c.ID }
func (c Checklist) EntityName() string { return c.Name }
func (c Checklist) IsClosed() bool     { return false }

func (i CheckItem) EntityID() string   { return i.ID }
func (i CheckItem) EntityName() string { return i.Name }
func (i CheckItem) IsClosed() bool     { return false }

// Done reports whether the item is checked.
func (i CheckItem) Done() bool {
	return strings.EqualFold(string(i.State), string(StateComplete))
}

// TodoListName is the list and card name used for a person's tasks.
func TodoListName(person string) string {
	return strings.TrimSpace(person) + "'s Todo"
}

// DefaultChecklistName is used when a task does not name a checklist.
const DefaultChecklistName = "Tasks"

// Task is a checklist item as seen by the employee it is assigned to.
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Completed   bool   `json:"completed"`
	ChecklistID string `json:"checklist_id"`
	Checklist   string `json:"checklist_name"`
	CardID      string `json:"card_id"`
	CardName    string `json:"card_name"`
}
