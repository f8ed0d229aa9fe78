package accounts

import (
	"context"
	"testing"

	"bluetrust-backend/internal/domain"
	"bluetrust-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	db := testutil.NewDB(t)
	return &Service{
		DB:              db,
		StartingBalance: 2500000,
		StartingCredits: func(role string) int64 {
			if role == "ngo" {
				return 1550
			}
			return 0
		},
	}
}

func TestEnsure_CreatesOnce(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	a, err := s.Ensure(ctx, "Sundarbans Conservation Society", "ngo")
	require.NoError(t, err)
	assert.Equal(t, int64(2500000), a.Balance)
	assert.Equal(t, int64(1550), a.OwnedCredits)

	require.NoError(t, s.DB.Model(&domain.Account{}).Where("account_id = ?", a.AccountID).
		Update("owned_credits", 10).Error)

	again, err := s.Ensure(ctx, "Sundarbans Conservation Society", "ngo")
	require.NoError(t, err)
	assert.Equal(t, a.AccountID, again.AccountID)
	assert.Equal(t, int64(10), again.OwnedCredits)

	var count int64
	s.DB.Model(&domain.Account{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsure_RequiresOrganization(t *testing.T) {
	s := newService(t)
	_, err := s.Ensure(context.Background(), "", "corporate")
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	s := newService(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = s.ByOrganization(context.Background(), "Nobody")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}
