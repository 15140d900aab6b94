package auth

import (
	"ploxora/internal/model"
)

// APIActor is the principal name used for requests authenticated by the static API key
const APIActor = "api"

// Roles carried by realtime tokens
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal is the authenticated caller of a service operation
type Principal struct {
	UserID   string
	Username string
	Email    string
	Admin    bool
}

// APIPrincipal returns the admin principal used for static API key requests
func APIPrincipal() Principal {
	return Principal{UserID: APIActor, Username: APIActor, Admin: true}
}

// PrincipalFor builds the principal of a stored user
func PrincipalFor(u *model.User) Principal {
	return Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Admin:    u.Admin,
	}
}

// Role returns the realtime token role of the principal
func (p Principal) Role() string {
	if p.Admin {
		return RoleAdmin
	}
	return RoleUser
}

// Name is the label written to audit entries
func (p Principal) Name() string {
	switch {
	case p.Username != "":
		return p.Username
	case p.Email != "":
		return p.Email
	default:
		return "unknown"
	}
}

// Owns reports whether the principal owns s
func (p Principal) Owns(s *model.Server) bool {
	return p.UserID != "" && s.User == p.UserID
}

// CanAccess reports whether the principal is the owner, a subuser or an admin
func (p Principal) CanAccess(s *model.Server) bool {
	if p.Admin || p.Owns(s) {
		return true
	}
	return p.Email != "" && s.HasSubuser(p.Email)
}

// CanManage reports whether the principal may change ownership data of s
func (p Principal) CanManage(s *model.Server) bool {
	return p.Admin || p.Owns(s)
}
