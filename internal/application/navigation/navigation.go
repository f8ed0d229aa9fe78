// Package navigation resolves which screen a path renders for the current session.
package navigation

import (
	"strings"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/pkg/constants"
)

// Route is the outcome of resolving a path. At most one of Redirect and
// NotFound is set; otherwise Path renders as requested.
type Route struct {
	Path     string `json:"path"`
	Redirect string `json:"redirect,omitempty"`
	NotFound bool   `json:"not_found"`
}

// Resolve applies the route guard. Landing and login pages are public;
// dashboards need a session of the matching role.
func Resolve(session *domain.Session, path string) Route {
	clean := "/" + strings.Trim(path, "/")
	parts := strings.Split(strings.Trim(clean, "/"), "/")

	switch {
	case clean == "/":
		return Route{Path: "/"}
	case len(parts) == 2 && parts[0] == "login":
		if !constants.IsValidRole(parts[1]) {
			return Route{Path: clean, NotFound: true}
		}
		return Route{Path: clean}
	case len(parts) == 2 && parts[1] == "dashboard" && constants.IsValidRole(parts[0]):
		if session == nil {
			return Route{Path: clean, Redirect: "/"}
		}
		if session.Role != parts[0] {
			return Route{Path: clean, Redirect: session.DashboardPath()}
		}
		return Route{Path: clean}
	}
	return Route{Path: clean, NotFound: true}
}
