package auth

import (
	"errors"

	"bluetrust-backend/internal/application/identity"
	"bluetrust-backend/internal/middleware"
	"bluetrust-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Identity *identity.Service
	Rdb      *redis.Client
	Config   middleware.SessionConfig
}

// Login POST /api/v1/auth/login: issue a fresh session, set the cookie and
// return the identity with its dashboard route.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req identity.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, identity.ErrCredentialsRequired.Error(), fiber.StatusBadRequest, nil)
	}
	if err := req.Validate(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}

	oldStore, oldSess := middleware.GetStore(c), middleware.GetSession(c)
	sid, store := middleware.RegenerateSessionID(c, h.Rdb)
	sess, err := h.Identity.Login(c.UserContext(), store, sid, req)
	if err != nil {
		if errors.Is(err, identity.ErrCredentialsRequired) ||
			errors.Is(err, identity.ErrInvalidEmail) ||
			errors.Is(err, identity.ErrInvalidRole) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		log.Error().Err(err).Msg("auth: login failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	// the previous session on this browser is dropped only once the new one exists
	if oldStore != nil {
		if err := h.Identity.Logout(c.UserContext(), oldStore, oldSess); err != nil {
			log.Warn().Err(err).Msg("auth: clearing previous session failed")
		}
	}
	middleware.SetSession(c, sess)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = sid
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user":     sess,
		"redirect": sess.DashboardPath(),
	}, nil)
}

// Me GET /api/v1/auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		log.Info().Str("path", "/auth/me").
			Bool("cookie_present", middleware.GetSessionID(c) != "").
			Msg("auth/me: not authenticated")
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": sess}, nil)
}

// Logout DELETE /api/v1/auth/logout: clear the session entries and the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if store := middleware.GetStore(c); store != nil {
		if err := h.Identity.Logout(c.UserContext(), store, middleware.GetSession(c)); err != nil {
			log.Error().Err(err).Msg("auth: logout failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", fiber.Map{"redirect": "/"}, nil)
}

// LogoutEverywhere DELETE /api/v1/auth/sessions: sign the user out on every
// browser, this one included.
func (h *Handlers) LogoutEverywhere(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	n, err := h.Identity.LogoutEverywhere(c.UserContext(), sess.UserID)
	if err != nil {
		log.Error().Err(err).Msg("auth: logout everywhere failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Signed out of all sessions", fiber.Map{"sessions": n, "redirect": "/"}, nil)
}
