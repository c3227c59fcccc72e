package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/llm"
)

const maxBodyBytes = 1 << 20

// Deps is everything the handlers need. It is built once in main and never
// mutated afterwards.
type Deps struct {
	Store   Store
	Auth    Authenticator
	Deduper Deduper
	Boards  BoardFactory
	// Models builds a language model for a caller's key. Nil disables
	// model calls entirely.
	Models   llm.Factory
	Location *time.Location
	Log      *log.Logger
	Now      func() time.Time
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d *Deps) {
	if d.Log == nil {
		d.Log = log.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}

	e.GET("/healthz", healthz())

	e.GET("/api/settings", getSettings(d))
	e.PUT("/api/settings", putSettings(d))

	e.POST("/api/admin/assign-task", postAssignTask(d))
	e.POST("/api/admin/query", postQuery(d))

	e.GET("/api/boards/:id/snapshot", getSnapshot(d))
	e.GET("/api/boards/:id/deadlines", getDeadlines(d))

	e.GET("/api/tasks", getTasks(d))
	e.POST("/api/tasks/update", postTaskUpdate(d))

	e.POST("/api/meetings", postMeeting(d))
	e.GET("/api/meetings", listMeetings(d))
	e.GET("/api/meetings/:id", getMeeting(d))
	e.POST("/api/meetings/:id/convert-to-task", postConvertToTask(d))
	e.POST("/api/meetings/:id/sync", postSyncMeeting(d))

	e.POST("/api/qa/query", postQuestion(d))
	e.GET("/api/qa/history", getHistory(d))
	e.POST("/api/qa/documents", postDocument(d))
	e.GET("/api/qa/documents", listDocuments(d))
	e.DELETE("/api/qa/documents/:id", deleteDocument(d))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

var errForbidden = errors.New("this action requires the admin persona")

type authError struct{ err error }

func (e *authError) Error() string { return e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

type badRequest string

func (e badRequest) Error() string { return string(e) }

// caller authenticates the request and provisions the user record.
func (d *Deps) caller(c echo.Context) (domain.User, error) {
	id, err := d.Auth.IdentityFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return domain.User{}, &authError{err: err}
	}
	u, err := d.Store.EnsureUser(c.Request().Context(), id.User())
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (d *Deps) admin(c echo.Context) (domain.User, error) {
	u, err := d.caller(c)
	if err != nil {
		return domain.User{}, err
	}
	if u.Persona != domain.PersonaAdmin {
		return domain.User{}, errForbidden
	}
	return u, nil
}

func (d *Deps) boardAPI(s domain.Settings) (board.API, error) {
	if err := s.RequireBoardCredentials(); err != nil {
		return nil, err
	}
	if d.Boards == nil {
		return nil, errors.New("board client not configured")
	}
	return d.Boards(s)
}

// model returns the caller's model, or nil when none can be built. Callers
// that can work without a model degrade to heuristics.
func (d *Deps) model(ctx context.Context, s domain.Settings) llm.Model {
	m, err := d.requireModel(ctx, s)
	if err != nil {
		d.Log.WithError(err).Debug("api.model.unavailable")
		return nil
	}
	return m
}

func (d *Deps) requireModel(ctx context.Context, s domain.Settings) (llm.Model, error) {
	if err := s.RequireModelKey(); err != nil {
		return nil, err
	}
	if d.Models == nil {
		return nil, &domain.ModelUnavailableError{Err: errors.New("no model configured")}
	}
	m, err := d.Models(ctx, s.GeminiAPIKey)
	if err != nil {
		return nil, &domain.ModelUnavailableError{Err: err}
	}
	return m, nil
}

// knownNames lists user names so queries can be matched to employees.
func (d *Deps) knownNames(ctx context.Context) []string {
	users, err := d.Store.ListUsers(ctx)
	if err != nil {
		d.Log.WithError(err).Warn("api.users.list_failed")
		return nil
	}
	names := make([]string, 0, len(users))
	for _, u := range users {
		if n := strings.TrimSpace(u.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid body")
	}
	return nil
}

// errorStatus maps an error to its HTTP status and client message.
func errorStatus(err error) (int, string) {
	var (
		authErr   *authError
		cfgErr    *domain.ConfigurationError
		remoteErr *domain.RemoteServiceError
		ambErr    *domain.AmbiguousInputError
		modelErr  *domain.ModelUnavailableError
		badReq    badRequest
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, err.Error()
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Error()
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest, cfgErr.Error()
	case errors.As(err, &ambErr):
		return http.StatusBadRequest, ambErr.Error()
	case errors.As(err, &remoteErr):
		switch {
		case remoteErr.Status == http.StatusNotFound:
			return http.StatusNotFound, remoteErr.Message
		case remoteErr.CallerFault():
			return http.StatusBadRequest, remoteErr.Message
		}
		return http.StatusBadGateway, remoteErr.Error()
	case errors.As(err, &modelErr):
		return http.StatusServiceUnavailable, modelErr.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "content is too large to store"
	}
	return http.StatusInternalServerError, err.Error()
}

func writeError(c echo.Context, err error) error {
	status, msg := errorStatus(err)
	return c.String(status, msg)
}
