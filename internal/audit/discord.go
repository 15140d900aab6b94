package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/settings"
)

// Notification levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
)

// SettingsReader reads the webhook switches
type SettingsReader interface {
	Get(ctx context.Context, key string) (any, error)
	GetString(ctx context.Context, key string) (string, error)
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// DiscordNotifier posts notifications to a Discord webhook when enabled in settings
type DiscordNotifier struct {
	settings SettingsReader
	client   *http.Client
	logger   *logrus.Entry
	now      func() time.Time
}

// NewDiscordNotifier creates a notifier reading IsLogs and ifisLogs from settings
func NewDiscordNotifier(reader SettingsReader, logger *logrus.Entry) *DiscordNotifier {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DiscordNotifier{
		settings: reader,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.WithField("component", "discord"),
		now:      time.Now,
	}
}

// LevelColor returns the embed colour for a level
func LevelColor(level string) int {
	switch level {
	case LevelError:
		return 0xff0000
	case LevelWarn:
		return 0xffa500
	case LevelDebug:
		return 0x808080
	default:
		return 0x00ff00
	}
}

// Notify sends message to the webhook. Errors are logged and never returned.
func (n *DiscordNotifier) Notify(ctx context.Context, message, level string) {
	if level == "" {
		level = LevelInfo
	}
	enabled, err := n.settings.Get(ctx, settings.KeyIsLogs)
	if err != nil || !settings.Truthy(enabled) {
		return
	}
	url, err := n.settings.GetString(ctx, settings.KeyWebhook)
	if err != nil || strings.TrimSpace(url) == "" {
		return
	}

	if err := n.post(ctx, url, message, level); err != nil {
		n.logger.WithError(err).Warn("Failed to send Discord log")
		return
	}

	entry := n.logger.WithField("level", level)
	switch level {
	case LevelDebug:
		entry.Debug(message)
	case LevelWarn:
		entry.Warn(message)
	case LevelError:
		entry.Error(message)
	default:
		entry.Info(message)
	}
}

func (n *DiscordNotifier) post(ctx context.Context, url, message, level string) error {
	body, err := json.Marshal(webhookPayload{Embeds: []embed{{
		Title:       "Ploxora Log: " + strings.ToUpper(level),
		Description: message,
		Color:       LevelColor(level),
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}
