// Package server exposes the agent over a small REST API: chat turns,
// capability inspection and deletion, conversation history, and
// character listing.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"persona/internal/agent"
	"persona/internal/capability"
	"persona/internal/logging"
	"persona/internal/store"
	"persona/internal/synthesis"
)

// Server is the REST front for one running agent.
type Server struct {
	router        *mux.Router
	registry      *capability.Registry
	pipeline      *synthesis.Pipeline
	conversations *store.ConversationStore
	characters    map[string]*store.Character
	newAgent      func(character *store.Character) *agent.Agent
	server        *http.Server
}

// Config wires the server's collaborators.
type Config struct {
	Addr          string
	Registry      *capability.Registry
	Pipeline      *synthesis.Pipeline
	Conversations *store.ConversationStore
	Characters    map[string]*store.Character
	// NewAgent builds the turn runner for a character (nil character
	// means the default persona).
	NewAgent func(character *store.Character) *agent.Agent
}

// New creates a fully wired server ready to Start.
func New(cfg Config) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		registry:      cfg.Registry,
		pipeline:      cfg.Pipeline,
		conversations: cfg.Conversations,
		characters:    cfg.Characters,
		newAgent:      cfg.NewAgent,
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // turns can synthesize capabilities
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/capabilities", s.handleListCapabilities).Methods(http.MethodGet)
	api.HandleFunc("/capabilities/{name}", s.handleDeleteCapability).Methods(http.MethodDelete)
	api.HandleFunc("/conversations", s.handleListConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", s.handleGetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", s.handleDeleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/characters", s.handleListCharacters).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until shutdown or a fatal error.
func (s *Server) Start() error {
	logging.Server("API listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
