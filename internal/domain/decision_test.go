package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ApproveDefaultsToEstimate(t *testing.T) {
	s := &ProjectSubmission{Status: SubmissionPending, EstimatedCredits: 450}
	credits, err := DecisionInput{Outcome: OutcomeApprove, Comments: "Canopy density verified"}.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, int64(450), credits)
}

func TestResolve_ApproveOverride(t *testing.T) {
	s := &ProjectSubmission{Status: SubmissionPending, EstimatedCredits: 450}
	override := int64(300)
	credits, err := DecisionInput{Outcome: OutcomeApprove, Comments: "ok", CreditsAwarded: &override}.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, int64(300), credits)

	zero := int64(0)
	credits, err = DecisionInput{Outcome: OutcomeApprove, Comments: "ok", CreditsAwarded: &zero}.Resolve(s)
	require.NoError(t, err)
	assert.Equal(t, int64(0), credits)

	neg := int64(-1)
	_, err = DecisionInput{Outcome: OutcomeApprove, Comments: "ok", CreditsAwarded: &neg}.Resolve(s)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestResolve_MissingJustification(t *testing.T) {
	s := &ProjectSubmission{Status: SubmissionPending}
	_, err := DecisionInput{Outcome: OutcomeApprove, Comments: "   "}.Resolve(s)
	assert.ErrorIs(t, err, ErrMissingJustification)
	_, err = DecisionInput{Outcome: OutcomeReject}.Resolve(s)
	assert.ErrorIs(t, err, ErrMissingJustification)
	_, err = DecisionInput{Outcome: "defer", Comments: "x"}.Resolve(s)
	assert.ErrorIs(t, err, ErrInvalidOutcome)
}

func TestTransition(t *testing.T) {
	s := &ProjectSubmission{Status: SubmissionPending}
	next, err := s.Transition(OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, SubmissionApproved, next)

	next, err = s.Transition(OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, next)

	for _, terminal := range []string{SubmissionApproved, SubmissionRejected} {
		s := &ProjectSubmission{Status: terminal}
		_, err := s.Transition(OutcomeApprove)
		assert.ErrorIs(t, err, ErrSubmissionAlreadyDecided)
	}
}

func TestTruncatePhotos(t *testing.T) {
	photos := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg", "7.jpg"}
	assert.Equal(t, photos[:5], TruncatePhotos(photos))
	assert.Len(t, TruncatePhotos(photos[:2]), 2)
}
