package emails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDecision_NoKeyIsNoop(t *testing.T) {
	c := &BrevoClient{Endpoint: "http://127.0.0.1:1"}
	assert.NoError(t, c.SendDecision(context.Background(), "a@b.org", "A", DecisionNotice{Outcome: "approve"}))
}

func TestSendDecision_PostsToBrevo(t *testing.T) {
	var got BrevoSendRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL, Client: srv.Client()}
	err := c.SendDecision(context.Background(), "sunita@scs.org", "Sunita Devi", DecisionNotice{
		ProjectName:    "Mangrove <Delta>",
		Outcome:        "approve",
		CreditsAwarded: 450,
		Comments:       "Documentation complete",
		ReviewerName:   "Dr. Anand Sharma",
	})
	require.NoError(t, err)

	assert.Equal(t, "k", apiKey)
	require.Len(t, got.To, 1)
	assert.Equal(t, "sunita@scs.org", got.To[0].Email)
	assert.Contains(t, got.Subject, "has been verified")
	assert.Contains(t, got.HTMLContent, "450 carbon credits")
	assert.Contains(t, got.HTMLContent, "Mangrove &lt;Delta&gt;")
}

func TestSendDecision_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := &BrevoClient{APIKey: "k", Endpoint: srv.URL, Client: srv.Client()}
	err := c.SendDecision(context.Background(), "x@y.org", "", DecisionNotice{Outcome: "reject", Reason: "Blurry photos"})
	assert.Error(t, err)
}

func TestDecisionSubject(t *testing.T) {
	assert.Equal(t, `Your project "P" was not approved`, DecisionSubject(DecisionNotice{ProjectName: "P", Outcome: "reject"}))
}
