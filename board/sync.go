package board

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"aura-api/domain"
)

// Hierarchy levels reported in SyncResult.Created. The item is always new
// and is not reported.
const (
	LevelList      = "list"
	LevelCard      = "card"
	LevelChecklist = "checklist"
)

// TaskRequest describes one task to put on a board.
type TaskRequest struct {
	BoardID       string
	Person        string
	Text          string
	ListName      string
	ChecklistName string
	Due           string
}

// SyncResult holds the ids of the hierarchy the task ended up in.
type SyncResult struct {
	ListID      string   `json:"list_id"`
	CardID      string   `json:"card_id"`
	ChecklistID string   `json:"checklist_id"`
	ItemID      string   `json:"item_id"`
	Created     []string `json:"created"`
}

// Synchronizer makes sure the list, card and checklist for a task exist and
// appends the task as a checklist item.
type Synchronizer struct {
	api    API
	logger *log.Logger
}

// NewSynchronizer returns a Synchronizer using api for remote calls.
func NewSynchronizer(api API, logger *log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Synchronizer{api: api, logger: logger}
}

// EnsureTask resolves or creates every missing level and adds the item. The
// first remote failure aborts the chain; levels created before it are kept
// and reused by the next call.
func (s *Synchronizer) EnsureTask(ctx context.Context, req TaskRequest) (SyncResult, error) {
	var res SyncResult
	person := strings.TrimSpace(req.Person)
	text := strings.TrimSpace(req.Text)
	boardID := strings.TrimSpace(req.BoardID)
	switch {
	case boardID == "":
		return res, domain.MissingSetting(domain.SettingWorkspaceID)
	case person == "" && strings.TrimSpace(req.ListName) == "":
		return res, domain.Ambiguous("no employee name found; say who the task is for")
	case text == "":
		return res, domain.Ambiguous("no task description found; say what needs to be done")
	}
	if due := strings.TrimSpace(req.Due); due != "" {
		text += " (Due: " + due + ")"
	}

	listName := strings.TrimSpace(req.ListName)
	if listName == "" {
		listName = domain.TodoListName(person)
	}
	checklistName := strings.TrimSpace(req.ChecklistName)
	if checklistName == "" {
		checklistName = domain.DefaultChecklistName
	}
	entry := s.logger.WithFields(log.Fields{"board": boardID, "list": listName, "checklist": checklistName})

	lists, err := s.api.Lists(ctx, boardID)
	if err != nil {
		return res, err
	}
	list, m := Resolve(listName, lists)
	if m.Ties > 0 {
		entry.WithField("ties", m.Ties).Warn("board.sync.list_ambiguous")
	}
	if !m.Found {
		if list, err = s.api.CreateList(ctx, boardID, listName); err != nil {
			return res, err
		}
		res.Created = append(res.Created, LevelList)
	}
	res.ListID = list.ID

	// the card carries the list's name
	cardName := listName
	cards, err := s.api.ListCards(ctx, list.ID)
	if err != nil {
		return res, err
	}
	card, m := Resolve(cardName, cards)
	if !m.Found {
		if card, err = s.api.CreateCard(ctx, list.ID, cardName); err != nil {
			return res, err
		}
		res.Created = append(res.Created, LevelCard)
	}
	res.CardID = card.ID

	checklists, err := s.api.CardChecklists(ctx, card.ID)
	if err != nil {
		return res, err
	}
	checklist, m := Resolve(checklistName, checklists)
	if !m.Found {
		if checklist, err = s.api.CreateChecklist(ctx, card.ID, checklistName); err != nil {
			return res, err
		}
		res.Created = append(res.Created, LevelChecklist)
	}
	res.ChecklistID = checklist.ID

	item, err := s.api.CreateCheckItem(ctx, checklist.ID, text)
	if err != nil {
		return res, err
	}
	res.ItemID = item.ID

	entry.WithFields(log.Fields{"item": item.ID, "created": res.Created}).Info("board.sync.task_added")
	return res, nil
}
