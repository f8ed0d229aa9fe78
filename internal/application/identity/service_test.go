package identity

import (
	"context"
	"testing"

	"bluetrust-backend/internal/application/accounts"
	"bluetrust-backend/internal/infrastructure/kvstore"
	"bluetrust-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdentity(t *testing.T) (*Service, *kvstore.RedisStore) {
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	svc := &Service{
		Rdb: rdb,
		Accounts: &accounts.Service{
			DB:              db,
			StartingBalance: 2500000,
			StartingCredits: func(role string) int64 {
				if role == "ngo" {
					return 1550
				}
				return 0
			},
		},
	}
	return svc, kvstore.ForSession(rdb, "sid-1")
}

func TestLogin_WritesBothKeys(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: " Sunita@Sundarbans.org ", Password: "x", Role: "ngo"})
	require.NoError(t, err)
	assert.Equal(t, "Sunita Devi", sess.Name)
	assert.Equal(t, "Sundarbans Conservation Society", sess.Organization)
	assert.Equal(t, "sunita@sundarbans.org", sess.Email)
	assert.False(t, sess.Verified)

	role, err := store.Get(ctx, kvstore.KeyUserType)
	require.NoError(t, err)
	assert.Equal(t, "ngo", role)
	raw, err := store.Get(ctx, kvstore.KeyUser)
	require.NoError(t, err)
	assert.Contains(t, raw, `"organization":"Sundarbans Conservation Society"`)

	members, err := svc.Rdb.SMembers(ctx, UserSessionsPrefix+sess.UserID).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"sid-1"}, members)

	acct, err := svc.Accounts.Get(ctx, sess.AccountID)
	require.NoError(t, err)
	assert.Equal(t, int64(1550), acct.OwnedCredits)
}

func TestLogin_GovernmentIsVerified(t *testing.T) {
	svc, store := setupIdentity(t)
	sess, err := svc.Login(context.Background(), store, "sid-1", LoginInput{Email: "anand@nccr.gov.in", Password: "x", Role: "government"})
	require.NoError(t, err)
	assert.True(t, sess.Verified)
	assert.Equal(t, "Dr. Anand Sharma", sess.Name)
}

func TestLogin_Validation(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: "a@b.com", Role: "ngo"})
	assert.ErrorIs(t, err, ErrCredentialsRequired)
	_, err = svc.Login(ctx, store, "sid-1", LoginInput{Email: "nope", Password: "x", Role: "ngo"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Login(ctx, store, "sid-1", LoginInput{Email: "a@b.com", Password: "x", Role: "admin"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = store.Get(ctx, kvstore.KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestUserID_Stable(t *testing.T) {
	assert.Equal(t, UserID("Priya@TechCorp.in"), UserID("priya@techcorp.in"))
	assert.NotEqual(t, UserID("a@b.com"), UserID("c@d.com"))
}

func TestRestore(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()

	sess, err := svc.Restore(ctx, store, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	in, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: "priya@techcorp.in", Password: "x", Role: "corporate"})
	require.NoError(t, err)

	got, err := svc.Restore(ctx, store, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in.UserID, got.UserID)
	assert.Equal(t, in.AccountID, got.AccountID)
	assert.Equal(t, "sid-1", got.ID)
}

func TestRestore_RequiresConsistentKeys(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()
	_, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: "priya@techcorp.in", Password: "x", Role: "corporate"})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, kvstore.KeyUserType, "ngo"))
	got, err := svc.Restore(ctx, store, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Delete(ctx, kvstore.KeyUserType))
	got, err = svc.Restore(ctx, store, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLogout(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()
	sess, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: "priya@techcorp.in", Password: "x", Role: "corporate"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, store, sess))
	_, err = store.Get(ctx, kvstore.KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	n, err := svc.Rdb.SCard(ctx, UserSessionsPrefix+sess.UserID).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	got, err := svc.Restore(ctx, store, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLogout_ClearsStoreWhenIndexFails(t *testing.T) {
	svc, store := setupIdentity(t)
	ctx := context.Background()
	sess, err := svc.Login(ctx, store, "sid-1", LoginInput{Email: "priya@techcorp.in", Password: "x", Role: "corporate"})
	require.NoError(t, err)

	// a non-set value under the index key makes SREM fail with WRONGTYPE
	require.NoError(t, svc.Rdb.Set(ctx, UserSessionsPrefix+sess.UserID, "x", 0).Err())

	require.NoError(t, svc.Logout(ctx, store, sess))
	_, err = store.Get(ctx, kvstore.KeyUser)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestLoginInput_Validate(t *testing.T) {
	assert.NoError(t, LoginInput{Email: "a@b.com", Password: "x", Role: "government"}.Validate())
	assert.ErrorIs(t, LoginInput{Email: " ", Password: "x", Role: "ngo"}.Validate(), ErrCredentialsRequired)
	assert.ErrorIs(t, LoginInput{Email: "nope", Password: "x", Role: "ngo"}.Validate(), ErrInvalidEmail)
	assert.ErrorIs(t, LoginInput{Email: "a@b.com", Password: "x", Role: "admin"}.Validate(), ErrInvalidRole)
}

func TestLogoutEverywhere(t *testing.T) {
	svc, first := setupIdentity(t)
	second := kvstore.ForSession(svc.Rdb, "sid-2")
	ctx := context.Background()

	in := LoginInput{Email: "priya@techcorp.in", Password: "x", Role: "corporate"}
	sess, err := svc.Login(ctx, first, "sid-1", in)
	require.NoError(t, err)
	_, err = svc.Login(ctx, second, "sid-2", in)
	require.NoError(t, err)

	n, err := svc.LogoutEverywhere(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, store := range []*kvstore.RedisStore{first, second} {
		got, err := svc.Restore(ctx, store, store.SessionID)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, int64(0), svc.Rdb.Exists(ctx, UserSessionsPrefix+sess.UserID).Val())

	n, err = svc.LogoutEverywhere(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
