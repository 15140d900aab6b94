package store

import (
	"context"
	"fmt"
	"strings"

	"ploxora/internal/errs"
	"ploxora/internal/kv"
	"ploxora/internal/model"
)

// Stores bundles the repositories for every namespace
type Stores struct {
	Nodes    *NodeRepo
	Servers  *ServerRepo
	Users    *UserRepo
	NestBits *NestBitRepo
	Themes   *ThemeRepo
	Settings *SettingsRepo
	// Sessions is the raw namespace used by the kv-backed session registry.
	Sessions kv.Store
}

// New builds the repositories. names maps a namespace to its configured
// table/key-prefix; missing entries fall back to the namespace itself.
func New(open kv.Opener, names map[string]string) *Stores {
	name := func(ns string) string {
		if n, ok := names[ns]; ok && n != "" {
			return n
		}
		return ns
	}
	return &Stores{
		Nodes:    &NodeRepo{NewRepo[model.Node](open(name(NSNodes)))},
		Servers:  &ServerRepo{NewRepo[model.Server](open(name(NSServers)))},
		Users:    &UserRepo{NewRepo[model.User](open(name(NSUsers)))},
		NestBits: &NestBitRepo{NewRepo[model.NestBit](open(name(NSNestBits)))},
		Themes:   &ThemeRepo{NewRepo[model.Theme](open(name(NSTheme)))},
		Settings: &SettingsRepo{kv: open(name(NSSettings))},
		Sessions: open(name(NSSessions)),
	}
}

// NewMemory builds repositories over fresh in-memory namespaces
func NewMemory() *Stores {
	return New(kv.NewMemoryOpener(), nil)
}

// NodeRepo stores nodes keyed by id
type NodeRepo struct{ *Repo[model.Node] }

// Save stores the node under its id
func (r *NodeRepo) Save(ctx context.Context, n *model.Node) error {
	return r.Put(ctx, n.ID, n)
}

// ServerRepo stores servers keyed by id
type ServerRepo struct{ *Repo[model.Server] }

// Save stores the server under its id
func (r *ServerRepo) Save(ctx context.Context, s *model.Server) error {
	return r.Put(ctx, s.ID, s)
}

// FindByContainerID returns the server running containerID
func (r *ServerRepo) FindByContainerID(ctx context.Context, containerID string) (*model.Server, error) {
	s, err := r.Find(ctx, func(s *model.Server) bool { return s.ContainerID == containerID })
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("server with container %q: %w", containerID, errs.ErrNotFound)
	}
	return s, nil
}

// ListByNode returns the servers placed on nodeID
func (r *ServerRepo) ListByNode(ctx context.Context, nodeID string) ([]*model.Server, error) {
	out := []*model.Server{}
	err := r.Each(ctx, func(_ string, s *model.Server) error {
		if s.Node == nodeID {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// ListAccessible returns servers owned by userID or shared with email
func (r *ServerRepo) ListAccessible(ctx context.Context, userID, email string) ([]*model.Server, error) {
	out := []*model.Server{}
	err := r.Each(ctx, func(_ string, s *model.Server) error {
		if s.User == userID || (email != "" && s.HasSubuser(email)) {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// UserRepo stores users keyed by id
type UserRepo struct{ *Repo[model.User] }

// Save stores the user under its id
func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	return r.Put(ctx, u.ID, u)
}

// FindByEmail does a case-insensitive email lookup. It returns nil when absent.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	return r.Find(ctx, func(u *model.User) bool {
		return u.Email != "" && strings.EqualFold(u.Email, email)
	})
}

// FindByClientKey returns the owner of a client API key, or nil
func (r *UserRepo) FindByClientKey(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, nil
	}
	return r.Find(ctx, func(u *model.User) bool {
		for _, k := range u.ClientAPIs {
			if k.Key == key {
				return true
			}
		}
		return false
	})
}

// NestBitRepo stores nestbits keyed by id
type NestBitRepo struct{ *Repo[model.NestBit] }

// Save stores the nestbit under its id
func (r *NestBitRepo) Save(ctx context.Context, n *model.NestBit) error {
	return r.Put(ctx, n.ID, n)
}

// ThemeRepo stores themes keyed by id
type ThemeRepo struct{ *Repo[model.Theme] }

// Save stores the theme under its id
func (r *ThemeRepo) Save(ctx context.Context, t *model.Theme) error {
	return r.Put(ctx, t.ID, t)
}
