package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GzipRequestMiddleware inflates request bodies sent with
// Content-Encoding: gzip, which clients use for large transcripts. A body
// that is not gzip gets a 400 and the inflated body may not exceed maxBytes.
func GzipRequestMiddleware(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := inflateBody(c, maxBytes); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// inflateBody swaps the request body for its decompressed stream. Requests
// without gzip in their encodings are left untouched.
func inflateBody(c echo.Context, maxBytes int64) error {
	req := c.Request()
	encodings := strings.Split(req.Header.Get(echo.HeaderContentEncoding), ",")
	gz := false
	for _, enc := range encodings {
		gz = gz || strings.EqualFold(strings.TrimSpace(enc), "gzip")
	}
	if !gz {
		return nil
	}

	zr, err := gzip.NewReader(req.Body)
	if err != nil {
		_ = req.Body.Close()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
	}
	var body io.ReadCloser = inflated{zr: zr, raw: req.Body}
	if maxBytes > 0 {
		body = http.MaxBytesReader(c.Response(), body, maxBytes)
	}
	req.Body = body
	req.ContentLength = -1
	req.Header.Del(echo.HeaderContentEncoding)
	req.Header.Del(echo.HeaderContentLength)
	return nil
}

// inflated reads through the gzip stream and closes both it and the raw body.
type inflated struct {
	zr  *gzip.Reader
	raw io.Closer
}

func (b inflated) Read(p []byte) (int, error) { return b.zr.Read(p) }

func (b inflated) Close() error {
	return errors.Join(b.zr.Close(), b.raw.Close())
}
