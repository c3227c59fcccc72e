package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/domain"
	"aura-api/rag"
	"aura-api/storage"
)

// qaProduct keys the stored question-answering conversation.
const qaProduct = "qa"

type questionRequest struct {
	Question string `json:"question"`
}

type questionResponse struct {
	Answer  string `json:"answer"`
	Sources int    `json:"sources"`
}

type documentsResponse struct {
	Documents []domain.Document `json:"documents"`
}

// sources gathers the documents and meetings the caller may ask about.
func (d *Deps) sources(ctx context.Context, u domain.User) ([]rag.Source, error) {
	docs, err := d.Store.ListDocuments(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := rag.FromDocuments(docs)

	f := storage.MeetingFilter{WorkspaceID: u.Settings.WorkspaceID}
	if u.Persona == domain.PersonaAdmin {
		f = storage.MeetingFilter{CreatedBy: u.ID}
	}
	if f.WorkspaceID == "" && f.CreatedBy == "" {
		return out, nil
	}
	ms, err := d.Store.ListMeetings(ctx, f)
	if err != nil {
		return nil, err
	}
	return append(out, rag.FromMeetings(ms)...), nil
}

func postQuestion(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		var req questionRequest
		if err := decodeBody(c, &req); err != nil {
			return writeError(c, err)
		}
		if strings.TrimSpace(req.Question) == "" {
			return writeError(c, badRequest("question is required"))
		}
		model, err := d.requireModel(ctx, u.Settings)
		if err != nil {
			return writeError(c, err)
		}
		srcs, err := d.sources(ctx, u)
		if err != nil {
			return writeError(c, err)
		}
		conv, err := d.Store.GetConversation(ctx, u.ID, qaProduct)
		if err != nil {
			return writeError(c, err)
		}

		answer, err := rag.NewService(model, d.Log).Answer(ctx, req.Question, srcs, conv.Messages)
		if err != nil {
			return writeError(c, err)
		}

		conv = rag.AppendTurn(conv, req.Question, answer, d.Now().UTC())
		if err := d.Store.SaveConversation(ctx, conv); err != nil {
			d.Log.WithError(err).WithField("userId", u.ID).Warn("qa.history.save_failed")
		}
		return c.JSON(http.StatusOK, questionResponse{Answer: answer, Sources: len(srcs)})
	}
}

func getHistory(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		conv, err := d.Store.GetConversation(c.Request().Context(), u.ID, qaProduct)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, conv)
	}
}

func postDocument(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		up, err := readUpload(c)
		if err != nil {
			return writeError(c, err)
		}
		filename := up.Filename
		if filename == "" {
			filename = "document.txt"
		}
		doc := domain.Document{
			ID:          uuid.NewString(),
			Filename:    filename,
			Content:     up.Text,
			UploadedBy:  u.ID,
			WorkspaceID: firstNonEmpty(up.WorkspaceID, u.Settings.WorkspaceID),
			CreatedAt:   d.Now().UTC(),
			FileSize:    len(up.Text),
		}
		if err := d.Store.SaveDocument(c.Request().Context(), doc); err != nil {
			return writeError(c, err)
		}
		d.Log.WithFields(log.Fields{
			"documentId": doc.ID,
			"userId":     u.ID,
			"bytes":      doc.FileSize,
		}).Info("qa.document.saved")
		doc.Content = ""
		return c.JSON(http.StatusCreated, doc)
	}
}

func listDocuments(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		docs, err := d.Store.ListDocuments(c.Request().Context(), u.ID)
		if err != nil {
			return writeError(c, err)
		}
		out := make([]domain.Document, 0, len(docs))
		for _, doc := range docs {
			doc.Content = ""
			out = append(out, doc)
		}
		return c.JSON(http.StatusOK, documentsResponse{Documents: out})
	}
}

func deleteDocument(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		if err := d.Store.DeleteDocument(c.Request().Context(), u.ID, c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
