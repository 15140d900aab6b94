// Package users implements accounts, logins and client API keys.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/model"
	"ploxora/internal/store"
)

// clientKeyBytes is the entropy of a client API key (48 hex chars)
const clientKeyBytes = 24

var (
	// ErrUserBanned is returned when a banned account authenticates
	ErrUserBanned = fmt.Errorf("USER_BANNED: %w", errs.ErrAuthFailed)
	// ErrInvalidCredentials is returned on an unknown email or wrong password
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", errs.ErrAuthFailed)
	// ErrRegistrationDisabled is returned by Register when sign-up is off
	ErrRegistrationDisabled = fmt.Errorf("registration is disabled: %w", errs.ErrAccessDenied)
)

// Auditor records administrative actions
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// Options configures the user service
type Options struct {
	AdminUsers      []string
	RegisterEnabled bool
	Logger          *logrus.Entry
}

// CreateRequest is the input of Register and Create
type CreateRequest struct {
	Username string
	Email    string
	Password string
}

// Service manages users and sessions
type Service struct {
	stores          *store.Stores
	sessions        auth.SessionRegistry
	auditor         Auditor
	adminUsers      []string
	registerEnabled bool
	logger          *logrus.Entry
	now             func() time.Time
}

// NewService creates the user service
func NewService(stores *store.Stores, sessions auth.SessionRegistry, auditor Auditor, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		stores:          stores,
		sessions:        sessions,
		auditor:         auditor,
		adminUsers:      opts.AdminUsers,
		registerEnabled: opts.RegisterEnabled,
		logger:          opts.Logger.WithField("component", "users"),
		now:             time.Now,
	}
}

// RegisterEnabled reports whether self sign-up is allowed
func (s *Service) RegisterEnabled() bool {
	return s.registerEnabled
}

func (s *Service) isAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range s.adminUsers {
		if a == email {
			return true
		}
	}
	return false
}

func (r *CreateRequest) normalize() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return fmt.Errorf("username, email and password are required: %w", errs.ErrValidation)
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("invalid email %q: %w", r.Email, errs.ErrValidation)
	}
	return nil
}

// newUser validates req, rejects duplicate emails and stores the account
func (s *Service) newUser(ctx context.Context, req CreateRequest) (*model.User, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	existing, err := s.stores.Users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s already registered: %w", req.Email, errs.ErrConflict)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   hash,
		ProfilePicture: model.DefaultAvatar(req.Username),
		Admin:          s.isAdmin(req.Email),
		Servers:        []model.ServerSummary{},
		ClientAPIs:     []model.ClientAPIKey{},
		CreatedAt:      s.now(),
	}
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

// Register creates an account and logs it in
func (s *Service) Register(ctx context.Context, req CreateRequest) (*model.User, string, error) {
	if !s.registerEnabled {
		return nil, "", ErrRegistrationDisabled
	}
	user, err := s.newUser(ctx, req)
	if err != nil {
		return nil, "", err
	}
	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	s.logger.WithField("user", user.ID).Info("User registered")
	return user, token, nil
}

// Login checks credentials and opens a session
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, "", fmt.Errorf("email and password are required: %w", errs.ErrValidation)
	}
	user, err := s.stores.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if user.Banned {
		return nil, "", ErrUserBanned
	}

	user.Admin = s.isAdmin(user.Email)
	if user.ProfilePicture == "" {
		user.ProfilePicture = model.DefaultAvatar(user.Username)
	}
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to save user: %w", err)
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the session token
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Authenticate resolves a session token to its user. The admin flag is
// recomputed from the allowlist on every request.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.stores.Users.Get(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("session user gone: %w", errs.ErrAuthFailed)
	}
	if err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, ErrUserBanned
	}
	user.Admin = s.isAdmin(user.Email)
	return user, nil
}

// DeleteAccount removes the caller's own account and session
func (s *Service) DeleteAccount(ctx context.Context, userID, token string) error {
	if _, err := s.stores.Users.Get(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if err := s.stores.Users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return s.sessions.Revoke(ctx, token)
}

// List returns every user
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	return s.stores.Users.List(ctx)
}

// Get returns one user
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.stores.Users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

// Create adds an account on behalf of an admin
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*model.User, error) {
	user, err := s.newUser(ctx, req)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditCreateUser,
		fmt.Sprintf("Created new user %s (%s)", user.Username, user.ID))
	return user, nil
}

// SetBanned bans or unbans a user
func (s *Service) SetBanned(ctx context.Context, actor auth.Principal, id string, banned bool) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Banned = banned
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	action, verb := model.AuditBanUser, "Banned"
	if !banned {
		action, verb = model.AuditUnbanUser, "Unbanned"
	}
	s.auditor.Record(ctx, actor.Name(), action, fmt.Sprintf("%s user %s (%s)", verb, user.Username, user.ID))
	return user, nil
}

// Delete removes a user. Servers owned by the user are left in place.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.stores.Users.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.auditor.Record(ctx, actor.Name(), model.AuditDeleteUser,
		fmt.Sprintf("Deleted user %s (%s)", user.Username, user.ID))
	return nil
}

// CreateClientKey issues a new client API key for the user
func (s *Service) CreateClientKey(ctx context.Context, userID string) (*model.ClientAPIKey, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	key, err := auth.RandomHex(clientKeyBytes)
	if err != nil {
		return nil, err
	}
	entry := model.ClientAPIKey{Key: key, CreatedAt: s.now()}
	user.ClientAPIs = append(user.ClientAPIs, entry)
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return &entry, nil
}

// ListClientKeys returns the user's client API keys
func (s *Service) ListClientKeys(ctx context.Context, userID string) ([]model.ClientAPIKey, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ClientAPIs == nil {
		return []model.ClientAPIKey{}, nil
	}
	return user.ClientAPIs, nil
}

// DeleteClientKey revokes one of the user's client API keys
func (s *Service) DeleteClientKey(ctx context.Context, userID, key string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	kept := make([]model.ClientAPIKey, 0, len(user.ClientAPIs))
	for _, k := range user.ClientAPIs {
		if k.Key != key {
			kept = append(kept, k)
		}
	}
	if len(kept) == len(user.ClientAPIs) {
		return fmt.Errorf("API key: %w", errs.ErrNotFound)
	}
	user.ClientAPIs = kept
	if err := s.stores.Users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ResolveClientKey returns the owner of a client API key
func (s *Service) ResolveClientKey(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, fmt.Errorf("missing client API key: %w", errs.ErrAuthFailed)
	}
	user, err := s.stores.Users.FindByClientKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("invalid client API key: %w", errs.ErrAuthFailed)
	}
	if user.Banned {
		return nil, ErrUserBanned
	}
	user.Admin = s.isAdmin(user.Email)
	return user, nil
}
