package kanban

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aura-api/domain"
)

const (
	// DefaultBaseURL is the Trello REST endpoint.
	DefaultBaseURL = "https://api.trello.com/1"
	// DefaultTimeout applies to every board API call.
	DefaultTimeout = 15 * time.Second

	maxResponseSize = 4 << 20
	tracerName      = "aura-api/kanban"
)

// Client talks to the board REST API with the caller's key and token.
type Client struct {
	baseURL string
	key     string
	token   string
	http    *http.Client
	retry   RetryPolicy
	tracer  trace.Tracer
	logger  *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithRetryPolicy sets the policy used for read calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for the given credentials.
func New(key, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(key) == "" {
		return nil, domain.MissingSetting(domain.SettingTrelloAPIKey)
	}
	if strings.TrimSpace(token) == "" {
		return nil, domain.MissingSetting(domain.SettingTrelloToken)
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		key:     key,
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
		retry:   DefaultRetryPolicy,
		tracer:  otel.Tracer(tracerName),
		logger:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromSettings builds a client from a user's stored settings.
func NewFromSettings(s domain.Settings, opts ...Option) (*Client, error) {
	if err := s.RequireBoardCredentials(); err != nil {
		return nil, err
	}
	return New(s.TrelloAPIKey, s.TrelloToken, opts...)
}

// Board returns the board's id and name.
func (c *Client) Board(ctx context.Context, boardID string) (domain.Board, error) {
	params := url.Values{"fields": {"name,url"}}
	return one[domain.Board](ctx, c, http.MethodGet, "/boards/"+url.PathEscape(boardID), params)
}

// Lists returns the open lists of a board.
func (c *Client) Lists(ctx context.Context, boardID string) ([]domain.List, error) {
	return getAll[domain.List](ctx, c, "/boards/"+url.PathEscape(boardID)+"/lists", nil)
}

// CreateList adds a list to a board.
func (c *Client) CreateList(ctx context.Context, boardID, name string) (domain.List, error) {
	params := url.Values{"name": {name}, "pos": {"bottom"}}
	return one[domain.List](ctx, c, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/lists", params)
}

// ListCards returns the cards in a list.
func (c *Client) ListCards(ctx context.Context, listID string) ([]domain.Card, error) {
	return getAll[domain.Card](ctx, c, "/lists/"+url.PathEscape(listID)+"/cards", nil)
}

// BoardCards returns every open card on a board.
func (c *Client) BoardCards(ctx context.Context, boardID string) ([]domain.Card, error) {
	return getAll[domain.Card](ctx, c, "/boards/"+url.PathEscape(boardID)+"/cards", nil)
}

// CreateCard adds a card at the bottom of a list.
func (c *Client) CreateCard(ctx context.Context, listID, name string) (domain.Card, error) {
	params := url.Values{"idList": {listID}, "name": {name}, "pos": {"bottom"}}
	return one[domain.Card](ctx, c, http.MethodPost, "/cards", params)
}

// CardChecklists returns the checklists of a card with their items.
func (c *Client) CardChecklists(ctx context.Context, cardID string) ([]domain.Checklist, error) {
	return getAll[domain.Checklist](ctx, c, "/cards/"+url.PathEscape(cardID)+"/checklists", nil)
}

// BoardChecklists returns every checklist on a board with their items.
func (c *Client) BoardChecklists(ctx context.Context, boardID string) ([]domain.Checklist, error) {
	return getAll[domain.Checklist](ctx, c, "/boards/"+url.PathEscape(boardID)+"/checklists", nil)
}

// CreateChecklist adds a checklist to a card.
func (c *Client) CreateChecklist(ctx context.Context, cardID, name string) (domain.Checklist, error) {
	params := url.Values{"name": {name}}
	return one[domain.Checklist](ctx, c, http.MethodPost, "/cards/"+url.PathEscape(cardID)+"/checklists", params)
}

// CheckItems returns the items of a checklist.
func (c *Client) CheckItems(ctx context.Context, checklistID string) ([]domain.CheckItem, error) {
	return getAll[domain.CheckItem](ctx, c, "/checklists/"+url.PathEscape(checklistID)+"/checkItems", nil)
}

// CreateCheckItem appends an item to a checklist.
func (c *Client) CreateCheckItem(ctx context.Context, checklistID, name string) (domain.CheckItem, error) {
	params := url.Values{"name": {name}, "pos": {"bottom"}}
	return one[domain.CheckItem](ctx, c, http.MethodPost, "/checklists/"+url.PathEscape(checklistID)+"/checkItems", params)
}

// SetCheckItemState marks an item complete or incomplete.
func (c *Client) SetCheckItemState(ctx context.Context, cardID, itemID string, state domain.CheckItemState) (domain.CheckItem, error) {
	params := url.Values{"state": {string(state)}}
	path := "/cards/" + url.PathEscape(cardID) + "/checkItem/" + url.PathEscape(itemID)
	return one[domain.CheckItem](ctx, c, http.MethodPut, path, params)
}

type commentAction struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
	MemberCreator struct {
		FullName string `json:"fullName"`
	} `json:"memberCreator"`
}

// CardComments returns the comments left on a card, newest first.
func (c *Client) CardComments(ctx context.Context, cardID string) ([]domain.Comment, error) {
	params := url.Values{"filter": {"commentCard"}}
	actions, err := getAll[commentAction](ctx, c, "/cards/"+url.PathEscape(cardID)+"/actions", params)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(actions))
	for _, a := range actions {
		out = append(out, domain.Comment{ID: a.ID, Text: a.Data.Text, Author: a.MemberCreator.FullName, Date: a.Date})
	}
	return out, nil
}

func getAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	return Retry(ctx, c.retry, func(ctx context.Context) ([]T, error) {
		body, err := c.do(ctx, http.MethodGet, path, params)
		if err != nil {
			return nil, err
		}
		items, err := Decode[T](body)
		if err != nil {
			return nil, &domain.RemoteServiceError{Method: http.MethodGet, Path: path, Message: err.Error()}
		}
		if items == nil {
			c.logger.WithFields(log.Fields{"path": path}).Debug("kanban.read.null")
		}
		return items, nil
	})
}

func one[T any](ctx context.Context, c *Client, method, path string, params url.Values) (T, error) {
	var zero T
	body, err := c.do(ctx, method, path, params)
	if err != nil {
		return zero, err
	}
	out, err := DecodeOne[T](body)
	if err != nil {
		return zero, &domain.RemoteServiceError{Method: method, Path: path, Message: err.Error()}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "kanban "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("kanban.path", path),
		))
	defer span.End()

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.key)
	q.Set("token", c.token)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, c.fail(span, &domain.RemoteServiceError{Method: method, Path: path, Err: err})
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error repeats the request URL, which carries the credentials.
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = uErr.Err
		}
		return nil, c.fail(span, &domain.RemoteServiceError{Method: method, Path: path, Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.fail(span, &domain.RemoteServiceError{Method: method, Path: path, Status: resp.StatusCode, Err: err, Message: err.Error()})
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"total_ms": float64(time.Since(start)) / float64(time.Millisecond),
	}).Debug("kanban.request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(span, &domain.RemoteServiceError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		})
	}
	return body, nil
}

func (c *Client) fail(span trace.Span, err *domain.RemoteServiceError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
