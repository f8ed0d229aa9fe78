package middleware

import (
	"context"
	"time"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/infrastructure/kvstore"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	AllowCrossSiteDev bool
	IsProduction      bool
	TTL               time.Duration
}

const (
	SessionCookieName = "bluetrust.sid"

	sessionLocal   = "session"
	sessionIDLocal = "session_id"
	storeLocal     = "session_store"
)

// RestoreFunc reads the signed-in identity for sid back out of its store.
// A nil session with a nil error means nobody is signed in.
type RestoreFunc func(ctx context.Context, store kvstore.Store, sid string) (*domain.Session, error)

// Session binds the request to its key-value store and restores the
// signed-in identity, if any. Stores of live sessions get their TTL extended.
func Session(rdb *redis.Client, cfg SessionConfig, restore RestoreFunc) fiber.Handler {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = kvstore.DefaultTTL
	}
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(SessionCookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = ""
		}
		c.Locals(sessionIDLocal, sid)
		c.Locals(sessionLocal, (*domain.Session)(nil))
		if sid == "" || rdb == nil {
			return c.Next()
		}

		store := &kvstore.RedisStore{Rdb: rdb, SessionID: sid, TTL: ttl}
		c.Locals(storeLocal, store)

		ctx := c.UserContext()
		sess, err := restore(ctx, store, sid)
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("session: restore failed")
		}
		if sess != nil {
			c.Locals(sessionLocal, sess)
			if err := store.Touch(ctx); err != nil {
				log.Warn().Err(err).Msg("session: touch failed")
			}
		}
		return c.Next()
	}
}

// GetSession returns the signed-in identity, nil when signed out.
func GetSession(c *fiber.Ctx) *domain.Session {
	s, _ := c.Locals(sessionLocal).(*domain.Session)
	return s
}

// GetSessionID returns the session id from the cookie ("" if none).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// GetStore returns the request's session store, nil without a session cookie.
func GetStore(c *fiber.Ctx) kvstore.Store {
	s, ok := c.Locals(storeLocal).(*kvstore.RedisStore)
	if !ok || s == nil {
		return nil
	}
	return s
}

// SetSession records a freshly issued identity on the request.
func SetSession(c *fiber.Ctx, sess *domain.Session) {
	c.Locals(sessionLocal, sess)
}

// RegenerateSessionID issues a new session id and binds a store to it.
// The caller sets the cookie.
func RegenerateSessionID(c *fiber.Ctx, rdb *redis.Client) (string, *kvstore.RedisStore) {
	sid := uuid.New().String()
	store := kvstore.ForSession(rdb, sid)
	c.Locals(sessionIDLocal, sid)
	c.Locals(storeLocal, store)
	return sid, store
}

// DestroySession drops the identity from the request; the caller clears the
// store and the cookie.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionLocal, (*domain.Session)(nil))
}

// SessionCookieConfig returns the cookie options for set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = kvstore.DefaultTTL
	}
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	secure := cfg.IsProduction && cfg.AllowCrossSiteDev
	return fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	}
}
