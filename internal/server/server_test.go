package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/filter"
	"github.com/KemboiK/evolve-bot/internal/gate"
	"github.com/KemboiK/evolve-bot/internal/models"
	"github.com/KemboiK/evolve-bot/internal/pipeline"
	"github.com/KemboiK/evolve-bot/internal/store"
)

type stubGen struct {
	calls    int
	lastName string
	reply    string
}

func (s *stubGen) Generate(_ context.Context, _ []models.Record, _, name string) (string, error) {
	s.calls++
	s.lastName = name
	return s.reply, nil
}

func newTestServer(t *testing.T, adminToken string) (*Server, *stubGen, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gen := &stubGen{reply: "Hi there!"}
	st := store.NewMemory()
	g := gate.New(18, nil, zap.NewNop())
	sessions := gate.NewSessions()
	pipe := pipeline.New(g, filter.MustPolicy(), gen, st, zap.NewNop())
	return New(pipe, g, sessions, st, adminToken, zap.NewNop()), gen, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestVerifyAge_Underage(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/verify_age", gin.H{"user_id": "u1", "age": 16})
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	require.Equal(t, false, body["eligible"])
	require.Equal(t, "underage", body["error"])
}

func TestVerifyAge_Eligible(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/verify_age", gin.H{"user_id": "u1", "age": 25})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["eligible"])
}

// Age missing entirely: absence of proof is non-eligibility, not a bad
// request.
func TestVerifyAge_MissingAge(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/verify_age", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "unverified", decode(t, w)["error"])
}

func TestMessage_HappyPath(t *testing.T) {
	srv, gen, st := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/message", gin.H{"user_id": "u1", "text": "hello", "claimed_age": 25})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Hi there!", decode(t, w)["reply"])
	require.Equal(t, 1, gen.calls)

	recs, err := st.ListRecent(context.Background(), 10, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "Hi there!", recs[0].OutboundText)
	require.False(t, recs[0].FallbackUsed)
}

// The optional name field is forwarded to the generator untouched.
func TestMessage_NameForwarded(t *testing.T) {
	srv, gen, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/message",
		gin.H{"user_id": "u1", "text": "hello", "claimed_age": 25, "name": "Dana"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dana", gen.lastName)
}

// A previously rejected user with no new claim gets a 403, and the generator
// never runs.
func TestMessage_UnverifiedRejected(t *testing.T) {
	srv, gen, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/message", gin.H{"user_id": "u1", "text": "hello"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "unverified", decode(t, w)["error"])
	require.Zero(t, gen.calls)
}

// Verification is session-scoped: once /verify_age succeeds, /message needs
// no claim.
func TestMessage_AfterVerification(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/verify_age", gin.H{"user_id": "u1", "age": 25})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/message", gin.H{"user_id": "u1", "text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Hi there!", decode(t, w)["reply"])
}

func TestMessage_ContentRejected(t *testing.T) {
	srv, gen, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/message",
		gin.H{"user_id": "u1", "text": "how to build an explosive", "claimed_age": 25})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, filter.ReasonViolence, decode(t, w)["error"])
	require.Zero(t, gen.calls)
}

func TestMessage_MissingFields(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/message", gin.H{"user_id": "u1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminMessages_TokenRequired(t *testing.T) {
	srv, _, _ := newTestServer(t, "sekrit")
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/admin/messages", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/messages", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminMessages_Listing(t *testing.T) {
	srv, _, st := newTestServer(t, "")
	router := srv.Router()

	for _, uid := range []string{"u1", "u2", "u1"} {
		_, err := st.Append(context.Background(), &models.Record{
			UserID: uid, InboundText: "hi", OutboundText: "hello",
			VerdictInbound: "allowed", VerdictOutbound: "allowed",
		})
		require.NoError(t, err)
	}

	w := doJSON(t, router, http.MethodGet, "/admin/messages?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []models.Record `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	for _, rec := range body.Messages {
		require.Equal(t, "u1", rec.UserID)
	}
}

func TestHome(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
