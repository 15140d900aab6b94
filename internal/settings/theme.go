package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ploxora/internal/auth"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

// Auditor records administrative actions
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// DefaultTheme is created when the catalogue is empty
var DefaultTheme = model.Theme{
	ID:          "default",
	Name:        "Default",
	Background:  "bg-neutral-950",
	TextColor:   "text-white",
	ButtonColor: "bg-neutral-800",
}

// ThemeList is the theme catalogue with the active classes
type ThemeList struct {
	Themes       []*model.Theme `json:"themes"`
	ActiveTheme  string         `json:"activeTheme"`
	ActiveButton string         `json:"activeButton"`
}

// ThemeEdit holds theme fields to change. Empty fields keep their value.
type ThemeEdit struct {
	Name        string
	Background  string
	TextColor   string
	ButtonColor string
}

// ThemeService manages themes
type ThemeService struct {
	themes   *store.ThemeRepo
	settings *Service
	auditor  Auditor
	now      func() time.Time
}

// NewThemeService creates the theme service
func NewThemeService(themes *store.ThemeRepo, settings *Service, auditor Auditor) *ThemeService {
	return &ThemeService{themes: themes, settings: settings, auditor: auditor, now: time.Now}
}

// List returns every theme, creating and activating the default when none exist
func (s *ThemeService) List(ctx context.Context) (*ThemeList, error) {
	themes, err := s.themes.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(themes) == 0 {
		def := DefaultTheme
		def.CreatedAt = s.now()
		if err := s.themes.Save(ctx, &def); err != nil {
			return nil, fmt.Errorf("failed to create default theme: %w", err)
		}
		if err := s.apply(ctx, &def); err != nil {
			return nil, err
		}
		themes = append(themes, &def)
	}

	activeTheme, err := s.settings.GetString(ctx, KeyActiveTheme)
	if err != nil {
		return nil, err
	}
	if activeTheme == "" {
		activeTheme = DefaultTheme.BodyClass()
	}
	activeButton, err := s.settings.GetString(ctx, KeyActiveButton)
	if err != nil {
		return nil, err
	}
	if activeButton == "" {
		activeButton = DefaultTheme.ButtonColor
	}
	return &ThemeList{Themes: themes, ActiveTheme: activeTheme, ActiveButton: activeButton}, nil
}

// Edit updates a theme. When the theme was the active one, or nothing is
// active, the new classes are applied.
func (s *ThemeService) Edit(ctx context.Context, actor auth.Principal, id string, edit ThemeEdit) (*model.Theme, error) {
	existing, err := s.themes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", id, err)
	}
	previousClass := existing.BodyClass()

	updated := *existing
	updated.Name = keep(edit.Name, existing.Name)
	updated.Background = keep(edit.Background, existing.Background)
	updated.TextColor = keep(edit.TextColor, existing.TextColor)
	updated.ButtonColor = keep(edit.ButtonColor, existing.ButtonColor)
	now := s.now()
	updated.UpdatedAt = &now

	if err := s.themes.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save theme: %w", err)
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditEditTheme, fmt.Sprintf("Edited theme %s (%s)", updated.Name, id))

	active, err := s.settings.GetString(ctx, KeyActiveTheme)
	if err != nil {
		return nil, err
	}
	if active == "" || active == previousClass {
		if err := s.apply(ctx, &updated); err != nil {
			return nil, err
		}
	}
	return &updated, nil
}

// SetActive applies a theme site-wide
func (s *ThemeService) SetActive(ctx context.Context, actor auth.Principal, id string) (*model.Theme, error) {
	t, err := s.themes.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", id, err)
	}
	if err := s.apply(ctx, t); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditSetTheme, fmt.Sprintf("Set theme %s (%s) as active", t.Name, id))
	return t, nil
}

func (s *ThemeService) apply(ctx context.Context, t *model.Theme) error {
	if err := s.settings.repo.Set(ctx, KeyActiveTheme, t.BodyClass()); err != nil {
		return err
	}
	return s.settings.repo.Set(ctx, KeyActiveButton, t.ButtonColor)
}

func keep(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
