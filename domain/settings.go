package domain

import "strings"

// Setting names as they appear in the settings API.
const (
	SettingTrelloAPIKey = "trello_api_key"
	SettingTrelloToken  = "trello_token"
	SettingGeminiAPIKey = "gemini_api_key"
	SettingWorkspaceID  = "workspace_id"
)

// Settings holds per-user credentials and defaults. WorkspaceID is the
// default board used when a request does not name one.
type Settings struct {
	TrelloAPIKey string `json:"trello_api_key,omitempty"`
	TrelloToken  string `json:"trello_token,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	WorkspaceID  string `json:"workspace_id,omitempty"`
}

// SettingsUpdate carries a partial settings change. Nil fields are left as
// they are. Empty Trello credentials clear the stored value; empty Gemini
// key and workspace are ignored.
type SettingsUpdate struct {
	TrelloAPIKey *string `json:"trello_api_key"`
	TrelloToken  *string `json:"trello_token"`
	GeminiAPIKey *string `json:"gemini_api_key"`
	WorkspaceID  *string `json:"workspace_id"`
}

// Apply returns s with the update merged in.
func (s Settings) Apply(u SettingsUpdate) Settings {
	if u.TrelloAPIKey != nil {
		s.TrelloAPIKey = strings.TrimSpace(*u.TrelloAPIKey)
	}
	if u.TrelloToken != nil {
		s.TrelloToken = strings.TrimSpace(*u.TrelloToken)
	}
	if u.GeminiAPIKey != nil {
		if v := strings.TrimSpace(*u.GeminiAPIKey); v != "" {
			s.GeminiAPIKey = v
		}
	}
	if u.WorkspaceID != nil {
		if v := strings.TrimSpace(*u.WorkspaceID); v != "" {
			s.WorkspaceID = v
		}
	}
	return s
}

// RequireBoardCredentials fails with a ConfigurationError naming the first
// missing board credential.
func (s Settings) RequireBoardCredentials() error {
	if s.TrelloAPIKey == "" {
		return MissingSetting(SettingTrelloAPIKey)
	}
	if s.TrelloToken == "" {
		return MissingSetting(SettingTrelloToken)
	}
	return nil
}

// RequireModelKey fails when no language model key is configured.
func (s Settings) RequireModelKey() error {
	if s.GeminiAPIKey == "" {
		return MissingSetting(SettingGeminiAPIKey)
	}
	return nil
}

// BoardID picks the explicit board id when given and falls back to the
// configured default.
func (s Settings) BoardID(explicit string) (string, error) {
	if id := strings.TrimSpace(explicit); id != "" {
		return id, nil
	}
	if s.WorkspaceID == "" {
		return "", &ConfigurationError{
			Setting: SettingWorkspaceID,
			Message: "no board id provided and workspace_id is not configured; add a default board in Settings",
		}
	}
	return s.WorkspaceID, nil
}

// Masked returns a view of the settings safe to send back to clients.
func (s Settings) Masked() SettingsView {
	return SettingsView{
		TrelloAPIKey:    mask(s.TrelloAPIKey),
		TrelloToken:     mask(s.TrelloToken),
		GeminiAPIKey:    mask(s.GeminiAPIKey),
		WorkspaceID:     s.WorkspaceID,
		BoardConfigured: s.RequireBoardCredentials() == nil,
		ModelConfigured: s.GeminiAPIKey != "",
	}
}

// SettingsView is the client representation of Settings.
type SettingsView struct {
	TrelloAPIKey    string `json:"trello_api_key"`
	TrelloToken     string `json:"trello_token"`
	GeminiAPIKey    string `json:"gemini_api_key"`
	WorkspaceID     string `json:"workspace_id"`
	BoardConfigured bool   `json:"board_configured"`
	ModelConfigured bool   `json:"model_configured"`
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
