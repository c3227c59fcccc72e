package storage

import (
	"context"
	"errors"
	"sort"

	"aura-api/domain"
)

const userPartition = "user"

func decodeUser(p props) domain.User {
	return domain.User{
		ID:      p.str("RowKey"),
		Name:    p.str("Name"),
		Email:   p.str("Email"),
		Persona: domain.ParsePersona(p.str("Persona")),
		Settings: domain.Settings{
			TrelloAPIKey: p.str("TrelloApiKey"),
			TrelloToken:  p.str("TrelloToken"),
			GeminiAPIKey: p.str("GeminiApiKey"),
			WorkspaceID:  p.str("WorkspaceId"),
		},
	}
}

func encodeUser(u domain.User) props {
	p := newProps(userPartition, u.ID)
	p["Name"] = u.Name
	p["Email"] = u.Email
	p["Persona"] = string(u.Persona)
	p["TrelloApiKey"] = u.Settings.TrelloAPIKey
	p["TrelloToken"] = u.Settings.TrelloToken
	p["GeminiApiKey"] = u.Settings.GeminiAPIKey
	p["WorkspaceId"] = u.Settings.WorkspaceID
	return p
}

// GetUser loads a user with their settings.
func (s *Storage) GetUser(ctx context.Context, id string) (domain.User, error) {
	p, err := getProps(ctx, s.users, userPartition, id)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUser(p), nil
}

// EnsureUser provisions a user from token claims, or refreshes the name,
// email and persona of a known one. Stored settings are kept.
func (s *Storage) EnsureUser(ctx context.Context, claims domain.User) (domain.User, error) {
	existing, err := s.GetUser(ctx, claims.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = domain.User{ID: claims.ID}
	case err != nil:
		return domain.User{}, err
	}

	updated := existing
	if claims.Name != "" {
		updated.Name = claims.Name
	}
	if claims.Email != "" {
		updated.Email = claims.Email
	}
	if claims.Persona != "" {
		updated.Persona = claims.Persona
	}
	if updated.Persona == "" {
		updated.Persona = domain.PersonaEmployee
	}
	if err == nil && updated == existing {
		return existing, nil
	}
	if err := upsertProps(ctx, s.users, encodeUser(updated)); err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// ListUsers returns every known user sorted by name, without settings.
func (s *Storage) ListUsers(ctx context.Context) ([]domain.User, error) {
	all, err := listProps(ctx, s.users, eq("PartitionKey", userPartition))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(all))
	for _, p := range all {
		u := decodeUser(p)
		u.Settings = domain.Settings{}
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

// UpdateSettings applies upd to the user's stored settings.
func (s *Storage) UpdateSettings(ctx context.Context, userID string, upd domain.SettingsUpdate) (domain.Settings, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.Settings{}, err
	}
	u.Settings = u.Settings.Apply(upd)
	if err := upsertProps(ctx, s.users, encodeUser(u)); err != nil {
		return domain.Settings{}, err
	}
	return u.Settings, nil
}
