// Package nestbits manages the catalogue of deployable images.
package nestbits

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

// DefaultRepoURL is the public nestbit catalogue
const DefaultRepoURL = "https://ma4z.pages.dev/repo/ploxora/nestbits.json"

// Auditor records administrative actions
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// CreateRequest holds the fields of a new nestbit
type CreateRequest struct {
	DockerImage string
	Name        string
	Version     string
	Author      string
	Description string
}

// Service manages nestbits
type Service struct {
	stores  *store.Stores
	auditor Auditor
	client  *http.Client
	logger  *logrus.Entry
	now     func() time.Time
}

// NewService creates the nestbit service
func NewService(stores *store.Stores, auditor Auditor, logger *logrus.Entry) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		stores:  stores,
		auditor: auditor,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.WithField("component", "nestbits"),
		now:     time.Now,
	}
}

// List returns every nestbit
func (s *Service) List(ctx context.Context) ([]*model.NestBit, error) {
	return s.stores.NestBits.List(ctx)
}

// Get returns one nestbit
func (s *Service) Get(ctx context.Context, id string) (*model.NestBit, error) {
	nb, err := s.stores.NestBits.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nestbit %s: %w", id, err)
	}
	return nb, nil
}

// Create adds a nestbit. Image, name and version are required.
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*model.NestBit, error) {
	nb := &model.NestBit{
		DockerImage: strings.TrimSpace(req.DockerImage),
		Name:        strings.TrimSpace(req.Name),
		Version:     strings.TrimSpace(req.Version),
		Author:      strings.TrimSpace(req.Author),
		Description: strings.TrimSpace(req.Description),
	}
	if nb.DockerImage == "" || nb.Name == "" || nb.Version == "" {
		return nil, fmt.Errorf("dockerimage, name and version are required: %w", errs.ErrValidation)
	}
	if err := s.add(ctx, nb); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditCreateNestBit, fmt.Sprintf("Created NestBit %s (%s)", nb.Name, nb.ID))
	return nb, nil
}

func (s *Service) add(ctx context.Context, nb *model.NestBit) error {
	id, err := auth.RandomHex(4)
	if err != nil {
		return err
	}
	nb.ID = id
	nb.CreatedAt = s.now()
	if err := s.stores.NestBits.Save(ctx, nb); err != nil {
		return fmt.Errorf("failed to save nestbit: %w", err)
	}
	return nil
}

// Delete removes a nestbit. Servers keep their embedded copy.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	nb, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.stores.NestBits.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete nestbit: %w", err)
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditDeleteNestBit, fmt.Sprintf("Deleted NestBit %s (%s)", nb.Name, id))
	return nil
}

// Export renders a nestbit as an indented JSON document and its download name
func (s *Service) Export(ctx context.Context, id string) ([]byte, string, error) {
	nb, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	body, err := json.MarshalIndent(nb, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode nestbit: %w", err)
	}
	return body, fmt.Sprintf("nestbit-%s.json", nb.Name), nil
}

// catalogueItem is one entry of a remote catalogue
type catalogueItem struct {
	DockerImage string `json:"dockerimage"`
	Image       string `json:"image"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
}

// Import fetches a JSON array of nestbits from url and adds every entry,
// filling missing fields with defaults.
func (s *Service) Import(ctx context.Context, url string) ([]*model.NestBit, error) {
	if url == "" {
		url = DefaultRepoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid catalogue url: %v: %w", err, errs.ErrValidation)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalogue: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch catalogue: unexpected status code %d", resp.StatusCode)
	}

	var items []catalogueItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode catalogue: %w", err)
	}

	added := make([]*model.NestBit, 0, len(items))
	for _, item := range items {
		id, err := auth.RandomHex(4)
		if err != nil {
			return added, err
		}
		nb := &model.NestBit{
			ID:          id,
			DockerImage: firstNonEmpty(item.DockerImage, item.Image, "default/image"),
			Name:        firstNonEmpty(item.Name, "NestBit-"+id),
			Description: firstNonEmpty(item.Description, "No description"),
			Version:     firstNonEmpty(item.Version, "1.0.0"),
			Author:      firstNonEmpty(item.Author, "Unknown"),
			CreatedAt:   s.now(),
		}
		if err := s.stores.NestBits.Save(ctx, nb); err != nil {
			return added, fmt.Errorf("failed to save nestbit: %w", err)
		}
		s.logger.Infof("Added NestBit: %s (%s)", nb.Name, nb.ID)
		added = append(added, nb)
	}
	return added, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
