package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/intent"
)

// HeaderIdempotencyKey lets clients retry an assignment safely.
const HeaderIdempotencyKey = "Idempotency-Key"

type assignRequest struct {
	Query         string `json:"query"`
	BoardID       string `json:"board_id"`
	ListName      string `json:"list_name"`
	ChecklistName string `json:"checklist_name"`
	Due           string `json:"due"`

	parsed *intent.Assignment
}

type assignResponse struct {
	Employee string           `json:"employee_name"`
	Task     string           `json:"task_description"`
	BoardID  string           `json:"board_id"`
	Result   board.SyncResult `json:"result"`
	Message  string           `json:"message"`
}

func postAssignTask(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, d.Log, "/api/admin/assign-task", "assign")
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		u, authErr := d.admin(c)
		metrics.Observe("auth", time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return writeError(c, authErr)
		}

		var req assignRequest
		if decErr := decodeBody(c, &req); decErr != nil {
			metrics.SetErrorStage("decode")
			return writeError(c, decErr)
		}

		key := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
		dedupe := key != "" && d.Deduper != nil
		if dedupe {
			added, dErr := d.Deduper.Add(ctx, u.ID, assignKey(key))
			switch {
			case dErr != nil:
				d.Log.WithError(dErr).Warn("assign.deduper.unavailable")
				dedupe = false
			case !added:
				metrics.Set("duplicate", true)
				return c.String(http.StatusConflict, "duplicate request")
			}
		}

		syncStart := time.Now()
		resp, syncErr := d.assign(ctx, u, req)
		metrics.Observe("sync", time.Since(syncStart))
		if syncErr != nil {
			if dedupe {
				if rErr := d.Deduper.Remove(ctx, u.ID, assignKey(key)); rErr != nil {
					d.Log.WithError(rErr).Warn("assign.deduper.remove_failed")
				}
			}
			metrics.SetErrorStage("sync")
			return writeError(c, syncErr)
		}
		metrics.Set("created_levels", len(resp.Result.Created))
		return c.JSON(http.StatusOK, resp)
	}
}

// assign parses an assignment out of the query and puts it on the board.
func (d *Deps) assign(ctx context.Context, u domain.User, req assignRequest) (assignResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return assignResponse{}, badRequest("query is required")
	}
	boardID, err := u.Settings.BoardID(req.BoardID)
	if err != nil {
		return assignResponse{}, err
	}
	api, err := d.boardAPI(u.Settings)
	if err != nil {
		return assignResponse{}, err
	}

	var a intent.Assignment
	if req.parsed != nil {
		a = *req.parsed
	} else {
		classifier := intent.New(d.model(ctx, u.Settings), d.Log)
		if a, err = classifier.ParseAssignment(ctx, req.Query, d.knownNames(ctx)); err != nil {
			return assignResponse{}, err
		}
	}

	res, err := board.NewSynchronizer(api, d.Log).EnsureTask(ctx, board.TaskRequest{
		BoardID:       boardID,
		Person:        a.EmployeeName,
		Text:          a.TaskDescription,
		ListName:      req.ListName,
		ChecklistName: req.ChecklistName,
		Due:           req.Due,
	})
	if err != nil {
		return assignResponse{}, err
	}
	d.Log.WithFields(log.Fields{
		"userId":   u.ID,
		"boardId":  boardID,
		"employee": a.EmployeeName,
		"created":  res.Created,
	}).Info("assign.synced")
	return assignResponse{
		Employee: a.EmployeeName,
		Task:     a.TaskDescription,
		BoardID:  boardID,
		Result:   res,
		Message:  "Task '" + a.TaskDescription + "' assigned to " + a.EmployeeName,
	}, nil
}

type queryRequest struct {
	Query   string `json:"query"`
	BoardID string `json:"board_id"`
}

type queryResponse struct {
	Operation  intent.Operation `json:"operation"`
	Function   string           `json:"function,omitempty"`
	Answer     string           `json:"answer"`
	Raw        string           `json:"raw,omitempty"`
	Assignment *assignResponse  `json:"assignment,omitempty"`
}

func postQuery(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, d.Log, "/api/admin/query", "query")
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		u, authErr := d.admin(c)
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return writeError(c, authErr)
		}
		var req queryRequest
		if decErr := decodeBody(c, &req); decErr != nil {
			metrics.SetErrorStage("decode")
			return writeError(c, decErr)
		}
		if strings.TrimSpace(req.Query) == "" {
			return writeError(c, badRequest("query is required"))
		}

		model := d.model(ctx, u.Settings)
		classifier := intent.New(model, d.Log)
		known := d.knownNames(ctx)
		classifyStart := time.Now()
		cl, clsErr := classifier.Classify(ctx, req.Query, known)
		metrics.Observe("classify", time.Since(classifyStart))
		if clsErr != nil {
			metrics.SetErrorStage("classify")
			return writeError(c, clsErr)
		}
		metrics.Set("source", cl.Source)

		switch {
		case cl.Has(intent.Delete):
			metrics.SetErrorStage("classify")
			return writeError(c, badRequest("deleting board items is not supported"))
		case cl.Has(intent.Write):
			areq := assignRequest{Query: req.Query, BoardID: req.BoardID}
			if a, ok := classifier.AssignmentFromParams(cl, known); ok {
				areq.parsed = &a
			}
			resp, wErr := d.assign(ctx, u, areq)
			if wErr != nil {
				metrics.SetErrorStage("sync")
				return writeError(c, wErr)
			}
			return c.JSON(http.StatusOK, queryResponse{Operation: intent.Write, Answer: resp.Message, Assignment: &resp})
		}

		boardID, bErr := u.Settings.BoardID(firstNonEmpty(req.BoardID, cl.Param(intent.ParamBoardID), intent.ExtractBoardID(req.Query)))
		if bErr != nil {
			return writeError(c, bErr)
		}
		api, bErr := d.boardAPI(u.Settings)
		if bErr != nil {
			return writeError(c, bErr)
		}

		fn := cl.Function()
		metrics.Set("function", fn)
		readStart := time.Now()
		title, raw, rErr := runRead(ctx, board.NewReader(api, d.Location), classifier, cl, req.Query, boardID)
		metrics.Observe("read", time.Since(readStart))
		if rErr != nil {
			metrics.SetErrorStage("read")
			return writeError(c, rErr)
		}

		answer := board.NewFormatter(model, d.Log).Summarize(ctx, title, raw, req.Query)
		return c.JSON(http.StatusOK, queryResponse{Operation: intent.Read, Function: fn, Answer: answer, Raw: raw})
	}
}

// runRead dispatches a classified read and renders its result as plain text.
func runRead(ctx context.Context, r *board.Reader, cls *intent.Classifier, cl intent.Classification, query, boardID string) (string, string, error) {
	name := func(kind, param string) (string, error) {
		if v := strings.TrimSpace(cl.Param(param)); v != "" {
			return v, nil
		}
		return cls.ExtractName(ctx, kind, query)
	}

	switch cl.Function() {
	case intent.FnBoardContent:
		s, err := r.Snapshot(ctx, boardID)
		if err != nil {
			return "", "", err
		}
		return "Board content", board.RenderSnapshot(s, r.Location()), nil

	case intent.FnAllActions:
		s, err := r.Snapshot(ctx, boardID)
		if err != nil {
			return "", "", err
		}
		groups, err := r.Checklists(ctx, boardID)
		if err != nil {
			return "", "", err
		}
		text := board.RenderSnapshot(s, r.Location()) + "\n\n" + board.RenderChecklists(groups, r.Location())
		return "Board activity", text, nil

	case intent.FnAllDeadlines:
		ds, err := r.Deadlines(ctx, boardID, "")
		if err != nil {
			return "", "", err
		}
		return "Deadlines", board.RenderDeadlines(ds), nil

	case intent.FnDeadline:
		card, err := name(intent.KindCard, intent.ParamCardName)
		if err != nil {
			return "", "", err
		}
		ds, err := r.Deadlines(ctx, boardID, card)
		if err != nil {
			return "", "", err
		}
		return "Deadline for " + card, board.RenderDeadlines(ds), nil

	case intent.FnListContent:
		list, err := name(intent.KindList, intent.ParamListName)
		if err != nil {
			return "", "", err
		}
		l, cards, err := r.ListContent(ctx, boardID, list)
		if err != nil {
			return "", "", err
		}
		return "List " + l.Name, board.RenderListContent(l, cards, r.Location()), nil

	case intent.FnCardDescription:
		cardName, err := name(intent.KindCard, intent.ParamCardName)
		if err != nil {
			return "", "", err
		}
		card, err := r.FindCard(ctx, boardID, cardName)
		if err != nil {
			return "", "", err
		}
		return "Card " + card.Name, board.RenderCard(card, nil), nil

	case intent.FnCardComment:
		cardName, err := name(intent.KindCard, intent.ParamCardName)
		if err != nil {
			return "", "", err
		}
		card, comments, err := r.CardComments(ctx, boardID, cardName)
		if err != nil {
			return "", "", err
		}
		return "Comments on " + card.Name, board.RenderCard(card, comments), nil

	case intent.FnChecklist:
		groups, err := r.Checklists(ctx, boardID)
		if err != nil {
			return "", "", err
		}
		return "Checklists", board.RenderChecklists(groups, r.Location()), nil

	default:
		return "", "", domain.Ambiguous("could not tell what to read from the board for %q", query)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
