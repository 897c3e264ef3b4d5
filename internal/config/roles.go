package config

import (
	"context"

	"tempora/internal/domain"
)

// SettingsRoleSource resolves the default role from the loaded settings.
type SettingsRoleSource struct {
	settings *Settings
}

// NewSettingsRoleSource creates a role source backed by settings.
func NewSettingsRoleSource(settings *Settings) *SettingsRoleSource {
	return &SettingsRoleSource{settings: settings}
}

// CurrentUserDefaultRole returns the configured default role, or nil when the
// settings carry none.
func (s *SettingsRoleSource) CurrentUserDefaultRole(ctx context.Context) (*domain.Role, error) {
	if s.settings.DefaultRoleID == 0 {
		return nil, nil
	}
	return &domain.Role{
		ID:   s.settings.DefaultRoleID,
		Name: s.settings.DefaultRoleName,
	}, nil
}
