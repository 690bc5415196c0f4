package models

import "time"

// Role names used by the identity service
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
	RoleClient   = "Client"
)

// User is the identity-service profile of the person behind a session
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	CPF   string   `json:"cpf,omitempty"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the user carries the exact role
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports the Admin role
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// IsManager is true for managers and admins
func (u *User) IsManager() bool {
	return u.HasRole(RoleManager) || u.IsAdmin()
}

// IsEmployee is true for any staff member
func (u *User) IsEmployee() bool {
	return u.HasRole(RoleEmployee) || u.IsManager()
}

// PrimaryRole picks the most privileged role the user holds
func (u *User) PrimaryRole() string {
	switch {
	case u.HasRole(RoleAdmin):
		return RoleAdmin
	case u.HasRole(RoleManager):
		return RoleManager
	case u.HasRole(RoleEmployee):
		return RoleEmployee
	default:
		return RoleClient
	}
}

// Session is the per-browser context: credentials, the signed-in user and
// the key under which carts, orders, catalog caches and chats are kept.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *User     `json:"user,omitempty"`
	Stateless    bool      `json:"-"` // built from a bearer token, never persisted
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Authenticated reports whether the session holds a token and a user
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != "" && s.User != nil
}

// ClearCredentials drops tokens and the user, keeping the session id
func (s *Session) ClearCredentials() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.User = nil
}

// SessionView is the public representation of a session
type SessionView struct {
	SessionID       string `json:"session_id"`
	IsAuthenticated bool   `json:"is_authenticated"`
	User            *User  `json:"user,omitempty"`
	Role            string `json:"role,omitempty"`
	IsAdmin         bool   `json:"is_admin"`
	IsManager       bool   `json:"is_manager"`
	IsEmployee      bool   `json:"is_employee"`
}

// View builds the role flags for the session
func (s *Session) View() SessionView {
	view := SessionView{SessionID: s.ID, IsAuthenticated: s.Authenticated()}
	if s.User != nil {
		view.User = s.User
		view.Role = s.User.PrimaryRole()
		view.IsAdmin = s.User.IsAdmin()
		view.IsManager = s.User.IsManager()
		view.IsEmployee = s.User.IsEmployee()
	}
	return view
}
