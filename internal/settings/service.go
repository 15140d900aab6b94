// Package settings manages panel settings and the theme catalogue.
package settings

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"ploxora/internal/errs"
	"ploxora/internal/store"
)

// Well-known setting keys
const (
	KeyName         = "NAME"
	KeyIsLogs       = "IsLogs"
	KeyWebhook      = "ifisLogs"
	KeyLogo         = "Logo"
	KeyActiveTheme  = "ACTIVE_THEME"
	KeyActiveButton = "ACTIVE_BUTTON"
)

// LogoURL is where the uploaded logo is served from
const LogoURL = "/uploads/logo.png"

const maxLogoSize = 5 << 20

// Service manages settings
type Service struct {
	repo       *store.SettingsRepo
	appName    string
	uploadsDir string
	logger     *logrus.Entry
}

// NewService creates the settings service
func NewService(repo *store.SettingsRepo, appName, uploadsDir string, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		repo:       repo,
		appName:    appName,
		uploadsDir: uploadsDir,
		logger:     logger.WithField("component", "settings"),
	}
}

// EnsureDefaults writes the default settings the first time the panel starts
func (s *Service) EnsureDefaults(ctx context.Context) error {
	done, err := s.repo.Has(ctx, store.InitializedKey)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	defaults := []struct {
		key   string
		value any
	}{
		{KeyName, s.appName},
		{KeyIsLogs, false},
		{KeyWebhook, ""},
		{KeyLogo, ""},
	}
	for _, d := range defaults {
		ok, err := s.repo.Has(ctx, d.key)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.repo.Set(ctx, d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s: %w", d.key, err)
		}
	}
	if err := s.repo.Set(ctx, store.InitializedKey, true); err != nil {
		return err
	}
	s.logger.Info("Default settings initialized")
	return nil
}

// All returns every visible setting
func (s *Service) All(ctx context.Context) (map[string]any, error) {
	return s.repo.All(ctx)
}

// Get returns a single setting, nil when unset
func (s *Service) Get(ctx context.Context, key string) (any, error) {
	return s.repo.Get(ctx, key)
}

// GetString returns a setting rendered as a string
func (s *Service) GetString(ctx context.Context, key string) (string, error) {
	return s.repo.GetString(ctx, key)
}

// Set stores a setting
func (s *Service) Set(ctx context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" || key == store.InitializedKey {
		return fmt.Errorf("invalid setting key %q: %w", key, errs.ErrValidation)
	}
	return s.repo.Set(ctx, key, value)
}

// AppName returns the configured display name, falling back to APP_NAME
func (s *Service) AppName(ctx context.Context) string {
	name, err := s.repo.GetString(ctx, KeyName)
	if err != nil || name == "" {
		return s.appName
	}
	return name
}

// Truthy reports whether a setting is set to a true-like value
func Truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

// SaveLogo stores the uploaded logo and points the Logo setting at it
func (s *Service) SaveLogo(ctx context.Context, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads dir: %w", err)
	}
	path := filepath.Join(s.uploadsDir, "logo.png")
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create logo: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, maxLogoSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write logo: %w", err)
	}
	if n > maxLogoSize {
		os.Remove(tmp)
		return "", fmt.Errorf("logo larger than %d bytes: %w", maxLogoSize, errs.ErrValidation)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to store logo: %w", err)
	}

	if err := s.repo.Set(ctx, KeyLogo, LogoURL); err != nil {
		return "", err
	}
	return LogoURL, nil
}
