package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"aura-api/board"
)

type deadlinesResponse struct {
	BoardID   string           `json:"board_id"`
	Deadlines []board.Deadline `json:"deadlines"`
	Text      string           `json:"text"`
}

func getSnapshot(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.admin(c)
		if err != nil {
			return writeError(c, err)
		}
		boardID, err := u.Settings.BoardID(c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		api, err := d.boardAPI(u.Settings)
		if err != nil {
			return writeError(c, err)
		}
		snap, err := board.NewReader(api, d.Location).Snapshot(c.Request().Context(), boardID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, snap)
	}
}

func getDeadlines(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		boardID, err := u.Settings.BoardID(c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		api, err := d.boardAPI(u.Settings)
		if err != nil {
			return writeError(c, err)
		}
		ds, err := board.NewReader(api, d.Location).Deadlines(c.Request().Context(), boardID, c.QueryParam("name"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, deadlinesResponse{BoardID: boardID, Deadlines: ds, Text: board.RenderDeadlines(ds)})
	}
}
