package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"aura-api/domain"
)

type settingsResponse struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Email    string              `json:"email"`
	Persona  domain.Persona      `json:"persona"`
	Settings domain.SettingsView `json:"settings"`
}

func newSettingsResponse(u domain.User, s domain.Settings) settingsResponse {
	return settingsResponse{ID: u.ID, Name: u.Name, Email: u.Email, Persona: u.Persona, Settings: s.Masked()}
}

func getSettings(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, newSettingsResponse(u, u.Settings))
	}
}

func putSettings(d *Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := d.caller(c)
		if err != nil {
			return writeError(c, err)
		}
		var upd domain.SettingsUpdate
		if err := decodeBody(c, &upd); err != nil {
			return writeError(c, err)
		}
		settings, err := d.Store.UpdateSettings(c.Request().Context(), u.ID, upd)
		if err != nil {
			return writeError(c, err)
		}
		d.Log.WithFields(log.Fields{"userId": u.ID}).Info("settings.updated")
		return c.JSON(http.StatusOK, newSettingsResponse(u, settings))
	}
}
