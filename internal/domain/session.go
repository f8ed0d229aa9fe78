package domain

import "github.com/google/uuid"

// Session is the signed-in identity. Only the identity service creates or
// clears one; everything else receives it by value.
type Session struct {
	ID           string    `json:"-"`
	UserID       string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"type"`
	Organization string    `json:"organization"`
	Verified     bool      `json:"verified"`
	AccountID    uuid.UUID `json:"account_id"`
}

// DashboardPath is the role's home route.
func (s Session) DashboardPath() string {
	return "/" + s.Role + "/dashboard"
}
