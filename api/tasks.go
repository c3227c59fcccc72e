package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/intent"
)

type taskUpdateRequest struct {
	BoardID   string `json:"board_id"`
	TaskID    string `json:"task_id"`
	Completed *bool  `json:"completed"`
	Query     string `json:"query"`
}

type taskUpdateResponse struct {
	Updated []domain.Task `json:"updated"`
}

// ownTasks loads the tasks on the caller's todo card.
func (d *Deps) ownTasks(ctx context.Context, u domain.User, explicitBoard string) (*board.Reader, board.TaskList, error) {
	if strings.TrimSpace(u.Name) == "" {
		return nil, board.TaskList{}, domain.Ambiguous("your profile has no name to look up a todo card with")
	}
	boardID, err := u.Settings.BoardID(explicitBoard)
	if err != nil {
		return nil, board.TaskList{}, err
	}
	api, err := d.boardAPI(u.Settings)
	if err != nil {
		return nil, board.TaskList{}, err
	}
	r := board.NewReader(api, d.Location)
	tl, err := r.UserTasks(ctx, boardID, u.Name)
	if err != nil {
		return nil, board.TaskList{}, err
	}
	return r, tl, nil
}

func getTasks(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		_, tl, err := d.ownTasks(c.Request().Context(), u, c.QueryParam("board_id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tl)
	}
}

func postTaskUpdate(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		var req taskUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		if req.TaskID == "" && strings.TrimSpace(req.Query) == "" {
			return writeError(c, badRequest("either task_id and completed or query is required"))
		}
		if req.TaskID != "" && req.Completed == nil {
			return writeError(c, badRequest("completed is required with task_id"))
		}

		r, tl, err := d.ownTasks(ctx, u, req.BoardID)
		if err != nil {
			return writeError(c, err)
		}
		if !tl.Found {
			return writeError(c, fmt.Errorf("todo card for %s: %w", u.Name, domain.ErrNotFound))
		}

		var updates []intent.TaskUpdate
		if req.TaskID != "" {
			updates = []intent.TaskUpdate{{TaskID: req.TaskID, Complete: *req.Completed}}
		} else {
			updates, err = intent.New(d.model(ctx, u.Settings), d.Log).ParseTaskUpdates(ctx, req.Query, tl.Tasks)
			if err != nil {
				return writeError(c, err)
			}
		}

		byID := make(map[string]domain.Task, len(tl.Tasks))
		for _, t := range tl.Tasks {
			byID[t.ID] = t
		}
		resp := taskUpdateResponse{Updated: []domain.Task{}}
		for _, upd := range updates {
			task, ok := byID[upd.TaskID]
			if !ok {
				return writeError(c, fmt.Errorf("task %s: %w", upd.TaskID, domain.ErrNotFound))
			}
			if _, err := r.SetTaskState(ctx, task.CardID, task.ID, upd.Complete); err != nil {
				return writeError(c, err)
			}
			task.Completed = upd.Complete
			resp.Updated = append(resp.Updated, task)
		}
		d.Log.WithFields(log.Fields{
			"userId":  u.ID,
			"updated": len(resp.Updated),
		}).Info("tasks.updated")
		return c.JSON(http.StatusOK, resp)
	}
}
