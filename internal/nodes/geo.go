package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// UnknownLocation is stored when the lookup fails
const UnknownLocation = "UNKNOWN"

// GeoLocator resolves a node address to a country code
type GeoLocator interface {
	Locate(ctx context.Context, address string) string
}

// IPAPILocator looks addresses up on ip-api.com
type IPAPILocator struct {
	BaseURL string
	Client  *http.Client
	Logger  *logrus.Entry
}

// NewIPAPILocator creates a locator with a 5 second timeout
func NewIPAPILocator(logger *logrus.Entry) *IPAPILocator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &IPAPILocator{
		BaseURL: "http://ip-api.com/json/",
		Client:  &http.Client{Timeout: 5 * time.Second},
		Logger:  logger.WithField("component", "geo"),
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
}

// Locate returns the country code of address, or UnknownLocation
func (l *IPAPILocator) Locate(ctx context.Context, address string) string {
	code, err := l.lookup(ctx, address)
	if err != nil {
		l.Logger.WithField("address", address).Warnf("Location lookup failed: %v", err)
		return UnknownLocation
	}
	if code == "" {
		return UnknownLocation
	}
	return code
}

func (l *IPAPILocator) lookup(ctx context.Context, address string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+url.PathEscape(address), nil)
	if err != nil {
		return "", err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return body.CountryCode, nil
}

// StaticLocator always returns the same location
type StaticLocator string

// Locate returns the fixed location
func (s StaticLocator) Locate(context.Context, string) string {
	return string(s)
}
