// Package api exposes the HTTP boundary: session creation and the chat
// endpoint that drives the agent pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/agent"
	"github.com/herdwise/livestock-agent/config"
	"github.com/herdwise/livestock-agent/session"
)

// TurnProcessor is the api's view of the agent core.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, userID, query string, history []session.Turn) (agent.TurnResult, error)
}

type Server struct {
	processor TurnProcessor
	sessions  session.Store
	cfg       config.Config
	logger    zerolog.Logger
	handler   http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type startRequest struct {
	UserID string `json:"user_id"`
}

type startResponse struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type chatResponse struct {
	Response  string       `json:"response"`
	SessionID string       `json:"session_id"`
	Sources   []chatSource `json:"sources,omitempty"`
}

type chatSource struct {
	Source string  `json:"source"`
	Header string  `json:"header,omitempty"`
	Page   string  `json:"page,omitempty"`
	Score  float64 `json:"score"`
}

func New(processor TurnProcessor, sessions session.Store, cfg config.Config, logger zerolog.Logger) *Server {
	s := &Server{
		processor: processor,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/session/start", s.handleStart)
	mux.HandleFunc("/v1/chat", s.handleChat)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = uuid.NewString()[:8]
	}
	sessionID := fmt.Sprintf("%s_%s", userID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	if err := s.sessions.Register(r.Context(), sessionID, userID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("register session")
		s.writeError(w, http.StatusInternalServerError, errors.New("could not start session"))
		return
	}

	s.writeJSON(w, http.StatusOK, startResponse{
		Message:   "Session started.",
		UserID:    userID,
		SessionID: sessionID,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" || req.SessionID == "" || req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing message, session_id, or user_id"))
		return
	}

	history, err := s.sessions.History(r.Context(), req.SessionID, s.cfg.Agent.HistoryWindow)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("load session history")
		s.writeError(w, http.StatusInternalServerError, errors.New("could not load session"))
		return
	}

	result, err := s.processor.ProcessTurn(r.Context(), req.SessionID, req.UserID, message, history)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away; nothing sensible to write.
			return
		}
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("process turn")
		s.writeError(w, http.StatusInternalServerError, errors.New("could not process message"))
		return
	}

	if err := s.sessions.Append(r.Context(), req.SessionID, result.Append...); err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("append session history")
	}

	sources := make([]chatSource, 0, len(result.Evidence))
	for _, item := range result.Evidence {
		sources = append(sources, chatSource{
			Source: item.Source,
			Header: item.Header,
			Page:   item.Page,
			Score:  item.Score,
		})
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Answer,
		SessionID: req.SessionID,
		Sources:   sources,
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	return nil
}
