package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/meetings"
	"aura-api/storage"
)

type meetingsResponse struct {
	Meetings []domain.Meeting `json:"meetings"`
}

type convertRequest struct {
	ParticipantName string `json:"participant_name"`
	TaskText        string `json:"task_text"`
	Deadline        string `json:"deadline"`
	BoardID         string `json:"board_id"`
}

type syncRequest struct {
	BoardID string `json:"board_id"`
}

type syncResponse struct {
	MeetingID string   `json:"meeting_id"`
	BoardID   string   `json:"board_id"`
	Queued    []string `json:"queued"`
	Skipped   int      `json:"skipped"`
}

func postMeeting(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := d.admin(c)
		if err != nil {
			return writeError(c, err)
		}
		up, err := readUpload(c)
		if err != nil {
			return writeError(c, err)
		}
		model, err := d.requireModel(ctx, u.Settings)
		if err != nil {
			return writeError(c, err)
		}

		res, err := meetings.NewProcessor(model, d.Log).Process(ctx, up.Text)
		if err != nil {
			return writeError(c, err)
		}
		m := domain.Meeting{
			ID:           uuid.NewString(),
			Title:        res.Title,
			Date:         d.Now().UTC(),
			Participants: res.Participants,
			Summary:      res.Summary,
			Transcript:   res.Transcript,
			ActionItems:  res.ActionItems,
			CreatedBy:    u.ID,
			WorkspaceID:  firstNonEmpty(up.WorkspaceID, u.Settings.WorkspaceID),
			Filename:     up.Filename,
		}
		if err := d.Store.SaveMeeting(ctx, m); err != nil {
			return writeError(c, err)
		}
		d.Log.WithFields(log.Fields{
			"meetingId":   m.ID,
			"userId":      u.ID,
			"actionItems": len(m.ActionItems),
		}).Info("meetings.saved")
		return c.JSON(http.StatusCreated, m)
	}
}

// canView reports whether u may read m. Admins see meetings they created
// and those of their workspace; employees only their workspace.
func canView(u domain.User, m domain.Meeting) bool {
	ws := u.Settings.WorkspaceID
	if ws != "" && m.WorkspaceID == ws {
		return true
	}
	return u.Persona == domain.PersonaAdmin && m.CreatedBy == u.ID
}

func listMeetings(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		f := storage.MeetingFilter{WorkspaceID: u.Settings.WorkspaceID}
		if u.Persona == domain.PersonaAdmin {
			f = storage.MeetingFilter{CreatedBy: u.ID}
		} else if f.WorkspaceID == "" {
			return c.JSON(http.StatusOK, meetingsResponse{Meetings: []domain.Meeting{}})
		}
		list, err := d.Store.ListMeetings(c.Request().Context(), f)
		if err != nil {
			return writeError(c, err)
		}
		out := make([]domain.Meeting, 0, len(list))
		for _, m := range list {
			m.Transcript = ""
			out = append(out, m)
		}
		return c.JSON(http.StatusOK, meetingsResponse{Meetings: out})
	}
}

func (d *Deps) visibleMeeting(ctx context.Context, u domain.User, id string) (domain.Meeting, error) {
	m, err := d.Store.GetMeeting(ctx, id)
	if err != nil {
		return domain.Meeting{}, err
	}
	if !canView(u, m) {
		return domain.Meeting{}, fmt.Errorf("meeting %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

func getMeeting(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		m, err := d.visibleMeeting(c.Request().Context(), u, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, m)
	}
}

func postConvertToTask(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := d.admin(c)
		if err != nil {
			return writeError(c, err)
		}
		var req convertRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		if strings.TrimSpace(req.ParticipantName) == "" || strings.TrimSpace(req.TaskText) == "" {
			return writeError(c, badRequest("participant_name and task_text are required"))
		}
		m, err := d.visibleMeeting(ctx, u, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		boardID, err := u.Settings.BoardID(firstNonEmpty(req.BoardID, m.WorkspaceID))
		if err != nil {
			return writeError(c, err)
		}
		api, err := d.boardAPI(u.Settings)
		if err != nil {
			return writeError(c, err)
		}
		res, err := board.NewSynchronizer(api, d.Log).EnsureTask(ctx, board.TaskRequest{
			BoardID: boardID,
			Person:  req.ParticipantName,
			Text:    req.TaskText,
			Due:     req.Deadline,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func postSyncMeeting(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := d.admin(c)
		if err != nil {
			return writeError(c, err)
		}
		var req syncRequest
		if c.Request().ContentLength > 0 {
			if err := decodeBody(c, &req); err != nil {
				return writeError(c, err)
			}
		}
		if err := u.Settings.RequireBoardCredentials(); err != nil {
			return writeError(c, err)
		}
		m, err := d.visibleMeeting(ctx, u, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		boardID, err := u.Settings.BoardID(firstNonEmpty(req.BoardID, m.WorkspaceID))
		if err != nil {
			return writeError(c, err)
		}

		keys := make([]string, len(m.ActionItems))
		for i := range m.ActionItems {
			keys[i] = syncItemKey(m.ID, i, boardID)
		}
		fresh, err := d.freshKeys(ctx, u.ID, keys)
		if err != nil {
			return writeError(c, err)
		}

		var jobs []domain.SyncJob
		var jobKeys []string
		for i, item := range m.ActionItems {
			if !fresh[i] || strings.TrimSpace(item.Assignee) == "" || strings.TrimSpace(item.Text) == "" {
				continue
			}
			jobs = append(jobs, domain.SyncJob{
				UserID:    u.ID,
				BoardID:   boardID,
				MeetingID: m.ID,
				Person:    item.Assignee,
				Text:      item.Text,
			})
			jobKeys = append(jobKeys, keys[i])
		}

		ids := []string{}
		if len(jobs) > 0 {
			sent, err := d.Store.EnqueueSyncJobs(ctx, jobs)
			if err != nil {
				d.releaseKeys(ctx, u.ID, jobKeys[len(sent):])
				return writeError(c, err)
			}
			ids = sent
		}
		d.Log.WithFields(log.Fields{
			"meetingId": m.ID,
			"boardId":   boardID,
			"queued":    len(ids),
		}).Info("meetings.sync.queued")
		return c.JSON(http.StatusAccepted, syncResponse{
			MeetingID: m.ID,
			BoardID:   boardID,
			Queued:    ids,
			Skipped:   len(m.ActionItems) - len(ids),
		})
	}
}

// freshKeys reports which keys have not been synced before. Without a
// deduper every key counts as fresh.
func (d *Deps) freshKeys(ctx context.Context, userID string, keys []string) ([]bool, error) {
	if d.Deduper == nil || len(keys) == 0 {
		fresh := make([]bool, len(keys))
		for i := range fresh {
			fresh[i] = true
		}
		return fresh, nil
	}
	fresh, err := d.Deduper.AddMany(ctx, userID, keys)
	if err != nil {
		var added []string
		for i, ok := range fresh {
			if ok {
				added = append(added, keys[i])
			}
		}
		d.releaseKeys(ctx, userID, added)
		return nil, fmt.Errorf("dedupe sync: %w", err)
	}
	return fresh, nil
}

func (d *Deps) releaseKeys(ctx context.Context, userID string, keys []string) {
	if d.Deduper == nil {
		return
	}
	var errs []error
	for _, k := range keys {
		if err := d.Deduper.Remove(ctx, userID, k); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		d.Log.WithError(err).Warn("meetings.sync.release_failed")
	}
}
