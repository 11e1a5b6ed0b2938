package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/herdwise/livestock-agent/agent"
	"github.com/herdwise/livestock-agent/api"
	"github.com/herdwise/livestock-agent/config"
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

type stubProcessor struct {
	result agent.TurnResult
	err    error
	calls  int
}

func (s *stubProcessor) ProcessTurn(_ context.Context, _, _, query string, _ []session.Turn) (agent.TurnResult, error) {
	s.calls++
	if s.err != nil {
		return agent.TurnResult{}, s.err
	}
	result := s.result
	if result.Append == nil {
		now := time.Now().UTC()
		result.Append = []session.Turn{
			{Role: session.RoleUser, Content: query, Timestamp: now},
			{Role: session.RoleAssistant, Content: result.Answer, Timestamp: now},
		}
	}
	return result, nil
}

func newTestServer(t *testing.T, processor *stubProcessor) (*api.Server, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	cfg := config.Config{Agent: config.AgentConfig{HistoryWindow: 6}}
	return api.New(processor, store, cfg, zerolog.Nop()), store
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStartSessionGeneratesIDs(t *testing.T) {
	server, _ := newTestServer(t, &stubProcessor{})

	rec := postJSON(t, server, "/v1/session/start", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.UserID)
	require.Contains(t, resp.SessionID, resp.UserID+"_")
}

func TestStartSessionKeepsProvidedUserID(t *testing.T) {
	server, _ := newTestServer(t, &stubProcessor{})

	rec := postJSON(t, server, "/v1/session/start", map[string]string{"user_id": "farmer-7"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "farmer-7", resp.UserID)
}

func TestChatValidatesRequest(t *testing.T) {
	server, _ := newTestServer(t, &stubProcessor{})

	rec := postJSON(t, server, "/v1/chat", map[string]string{"message": "hi"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatProcessesTurnAndPersistsHistory(t *testing.T) {
	processor := &stubProcessor{result: agent.TurnResult{
		Answer:     "Keep the animal hydrated. [guide.pdf, page 3]",
		Route:      agent.RouteInformational,
		FinalState: agent.StateAnswer,
		Evidence: retrieval.Evidence{
			{Source: "guide.pdf", Page: "3", Score: 0.8},
		},
	}}
	server, store := newTestServer(t, processor)

	rec := postJSON(t, server, "/v1/chat", map[string]string{
		"message":    "How to treat cattle fever?",
		"session_id": "s1",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Response  string `json:"response"`
		SessionID string `json:"session_id"`
		Sources   []struct {
			Source string  `json:"source"`
			Page   string  `json:"page"`
			Score  float64 `json:"score"`
		} `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "s1", resp.SessionID)
	require.Contains(t, resp.Response, "guide.pdf")
	require.Len(t, resp.Sources, 1)
	require.Equal(t, "3", resp.Sources[0].Page)

	history, err := store.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, session.RoleUser, history[0].Role)
	require.Equal(t, session.RoleAssistant, history[1].Role)
}

func TestChatSurfacesProcessorFailureAsGenericError(t *testing.T) {
	processor := &stubProcessor{err: context.DeadlineExceeded}
	server, store := newTestServer(t, processor)

	rec := postJSON(t, server, "/v1/chat", map[string]string{
		"message":    "question",
		"session_id": "s1",
		"user_id":    "u1",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "deadline", "internal errors must not leak")

	history, err := store.History(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Empty(t, history, "failed turns must not mutate session history")
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
