package api

import (
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
)

// maxUploadBytes keeps an uploaded text, stored as UTF-16 (at most twice its
// UTF-8 size), inside one 1 MiB table entity with room left for a meeting's
// summary and action items.
const maxUploadBytes = 384 << 10

var errUploadTooLarge = badRequest(fmt.Sprintf("file is too large; the limit is %d KB", maxUploadBytes>>10))

var uploadExtensions = map[string]bool{".txt": true, ".md": true}

type upload struct {
	Filename    string
	Text        string
	WorkspaceID string
}

type uploadBody struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	Transcript  string `json:"transcript"`
	WorkspaceID string `json:"workspace_id"`
}

// readUpload accepts either a multipart "file" field or a JSON body with the
// text inline.
func readUpload(c echo.Context) (upload, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		var body uploadBody
		if err := decodeBody(c, &body); err != nil {
			return upload{}, err
		}
		text := body.Content
		if text == "" {
			text = body.Transcript
		}
		if strings.TrimSpace(text) == "" {
			return upload{}, badRequest("content is required")
		}
		if len(text) > maxUploadBytes {
			return upload{}, errUploadTooLarge
		}
		return upload{Filename: body.Filename, Text: text, WorkspaceID: body.WorkspaceID}, nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return upload{}, badRequest("file is required")
	}
	if ext := strings.ToLower(path.Ext(fh.Filename)); !uploadExtensions[ext] {
		return upload{}, badRequest("only .txt and .md files are supported")
	}
	if fh.Size > maxUploadBytes {
		return upload{}, errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, badRequest("unreadable file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return upload{}, badRequest("unreadable file")
	}
	if len(data) > maxUploadBytes {
		return upload{}, errUploadTooLarge
	}
	if !utf8.Valid(data) {
		return upload{}, badRequest("file is not valid UTF-8 text")
	}
	if strings.TrimSpace(string(data)) == "" {
		return upload{}, badRequest("file is empty")
	}
	return upload{Filename: fh.Filename, Text: string(data), WorkspaceID: c.FormValue("workspace_id")}, nil
}
