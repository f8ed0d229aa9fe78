// Package identity signs users in and out. It is the only writer of the
// session entries in the key-value store.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/infrastructure/kvstore"
	"bluetrust-backend/internal/pkg/constants"
	"bluetrust-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// UserSessionsPrefix indexes every live session id of a user.
const UserSessionsPrefix = "user_sessions:"

var (
	ErrCredentialsRequired = errors.New("Email and password are required")
	ErrInvalidEmail        = errors.New("Please enter a valid email address")
	ErrInvalidRole         = errors.New("Role must be one of ngo, government or corporate")
)

// Profile is the display identity issued for a role.
type Profile struct {
	Name         string
	Organization string
	Verified     bool
}

var profiles = map[string]Profile{
	constants.NGO:        {Name: "Sunita Devi", Organization: "Sundarbans Conservation Society"},
	constants.Government: {Name: "Dr. Anand Sharma", Organization: "National Centre for Sustainable Coastal Management", Verified: true},
	constants.Corporate:  {Name: "Priya Singh", Organization: "TechCorp India Pvt Ltd"},
}

// ProfileFor returns the profile issued for role.
func ProfileFor(role string) (Profile, bool) {
	p, ok := profiles[role]
	return p, ok
}

// UserID derives a stable user id from an email address.
func UserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bluetrust:"+normalizeEmail(email))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Service struct {
	Rdb      *redis.Client
	Accounts *accounts.Service
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate checks the credentials' shape without touching any state.
func (in LoginInput) Validate() error {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return ErrCredentialsRequired
	}
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if _, ok := ProfileFor(in.Role); !ok {
		return ErrInvalidRole
	}
	return nil
}

// Login issues a session for any well-formed credentials. The password is
// required but not checked against anything.
func (s *Service) Login(ctx context.Context, store kvstore.Store, sessionID string, in LoginInput) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	profile, _ := ProfileFor(in.Role)

	acct, err := s.Accounts.Ensure(ctx, profile.Organization, in.Role)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:           sessionID,
		UserID:       UserID(email),
		Email:        email,
		Name:         profile.Name,
		Role:         in.Role,
		Organization: profile.Organization,
		Verified:     profile.Verified,
		AccountID:    acct.AccountID,
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, kvstore.KeyUser, string(b)); err != nil {
		return nil, fmt.Errorf("store session user: %w", err)
	}
	if err := store.Set(ctx, kvstore.KeyUserType, in.Role); err != nil {
		return nil, fmt.Errorf("store session role: %w", err)
	}
	if s.Rdb != nil {
		if err := s.Rdb.SAdd(ctx, UserSessionsPrefix+sess.UserID, sessionID).Err(); err != nil {
			return nil, fmt.Errorf("index session: %w", err)
		}
	}
	log.Info().Str("user_id", sess.UserID).Str("role", sess.Role).Msg("identity: signed in")
	return sess, nil
}

// Restore reads the session back. Both entries must be present and agree on
// the role, otherwise there is no session.
func (s *Service) Restore(ctx context.Context, store kvstore.Store, sessionID string) (*domain.Session, error) {
	raw, err := store.Get(ctx, kvstore.KeyUser)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	role, err := store.Get(ctx, kvstore.KeyUserType)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		log.Warn().Err(err).Msg("identity: discarding unreadable session")
		return nil, nil
	}
	if sess.Role != role || !constants.IsValidRole(role) {
		return nil, nil
	}
	sess.ID = sessionID
	return &sess, nil
}

// Logout clears the session's entries and drops it from the user's index.
func (s *Service) Logout(ctx context.Context, store kvstore.Store, sess *domain.Session) error {
	if sess != nil && s.Rdb != nil && sess.ID != "" {
		if err := s.Rdb.SRem(ctx, UserSessionsPrefix+sess.UserID, sess.ID).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", sess.UserID).Msg("identity: unindexing session failed")
		}
	}
	return store.Clear(ctx)
}

// LogoutEverywhere deletes every session the user holds and returns how many
// were removed.
func (s *Service) LogoutEverywhere(ctx context.Context, userID string) (int, error) {
	if userID == "" || s.Rdb == nil {
		return 0, nil
	}
	key := UserSessionsPrefix + userID
	sids, err := s.Rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, kvstore.SessionPrefix+sid)
	}
	keys = append(keys, key)
	if err := s.Rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	log.Info().Str("user_id", userID).Int("sessions", len(sids)).Msg("identity: signed out everywhere")
	return len(sids), nil
}
