package model

import (
	"net/url"
	"time"
)

// User represents a panel account
type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PasswordHash   string          `json:"password"`
	ProfilePicture string          `json:"profilePicture,omitempty"`
	Admin          bool            `json:"admin"`
	Banned         bool            `json:"banned"`
	Servers        []ServerSummary `json:"servers"`
	ClientAPIs     []ClientAPIKey  `json:"clientAPIs"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ClientAPIKey is a per-user key accepted by the client API
type ClientAPIKey struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserView is the user representation returned by the API (no password hash)
type UserView struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	ProfilePicture string          `json:"profilePicture,omitempty"`
	Admin          bool            `json:"admin"`
	Banned         bool            `json:"banned"`
	Servers        []ServerSummary `json:"servers"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// View strips credentials from the user
func (u *User) View() UserView {
	servers := u.Servers
	if servers == nil {
		servers = []ServerSummary{}
	}
	return UserView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Admin:          u.Admin,
		Banned:         u.Banned,
		Servers:        servers,
		CreatedAt:      u.CreatedAt,
	}
}

// FindServer returns the owned server summary with the given container id
func (u *User) FindServer(containerID string) *ServerSummary {
	for i := range u.Servers {
		if u.Servers[i].ContainerID == containerID {
			return &u.Servers[i]
		}
	}
	return nil
}

// RemoveServer drops a server summary by id. It reports whether one was removed.
func (u *User) RemoveServer(serverID string) bool {
	for i := range u.Servers {
		if u.Servers[i].ID == serverID {
			u.Servers = append(u.Servers[:i], u.Servers[i+1:]...)
			return true
		}
	}
	return false
}

// DefaultAvatar returns the generated avatar URL for a username
func DefaultAvatar(username string) string {
	return "https://api.dicebear.com/7.x/adventurer/svg?seed=" + url.QueryEscape(username)
}
