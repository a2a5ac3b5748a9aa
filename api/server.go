// Package api implements the control service of a running bcdice-irc process
// and a client for it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"bcdice-irc/core/config"
	"bcdice-irc/core/state"
)

// RequestIDHeader carries the id assigned to every control request.
const RequestIDHeader = "X-Request-Id"

const shutdownTimeout = 5 * time.Second

// VersionInfo is the response of GET /version.
type VersionInfo struct {
	BCDice    string `json:"bcdice"`
	BCDiceIRC string `json:"bcdice_irc"`
}

// DiceBot describes one rule set.
type DiceBot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	HelpMessage string `json:"help_message"`
}

// DiceBotList is the response of GET /dicebots.
type DiceBotList struct {
	DiceBots []DiceBot `json:"dice_bots"`
}

// StateInfo is the response of GET /state.
type StateInfo struct {
	State   string `json:"state"`
	Status  string `json:"status"`
	Title   string `json:"title"`
	Preset  string `json:"preset,omitempty"`
	RuleSet string `json:"rule_set"`
	Error   string `json:"error,omitempty"`
}

// PresetList is the response of GET /presets.
type PresetList struct {
	Presets      []string `json:"presets"`
	LastSelected int      `json:"last_selected"`
}

// ConnectRequest is the body of POST /connect.
type ConnectRequest struct {
	Preset string `json:"preset"`
}

// StatusResponse acknowledges commands.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Backend is the front end the control service drives.
// Implementations must be safe to call from request goroutines.
type Backend interface {
	Version() VersionInfo
	DiceBots() []DiceBot
	State() StateInfo
	Presets() PresetList
	Connect(preset string) error
	Disconnect() error
}

// Server serves the control API.
type Server struct {
	backend Backend
	router  chi.Router

	mu      sync.Mutex
	srv     *http.Server
	closed  bool
	stop    chan struct{}
	stopped sync.Once
}

// NewServer builds the router for b.
func NewServer(b Backend) *Server {
	s := &Server{backend: b, stop: make(chan struct{})}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/version", s.getVersion)
	r.Post("/stop", s.postStop)
	r.Get("/dicebots", s.getDiceBots)
	r.Get("/state", s.getState)
	r.Get("/presets", s.getPresets)
	r.Post("/connect", s.postConnect)
	r.Post("/disconnect", s.postDisconnect)

	s.router = r
	return s
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StopRequested is closed once a client calls POST /stop.
func (s *Server) StopRequested() <-chan struct{} {
	return s.stop
}

// Serve accepts connections on l until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return l.Close()
	}
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	log.Printf("api: listening on %s", l.Addr())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Detail: msg})
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Version())
}

func (s *Server) postStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "stopping"})
	s.stopped.Do(func() {
		log.Println("api: stop requested")
		close(s.stop)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Printf("api: shutdown: %v", err)
			}
		}()
	})
}

func (s *Server) getDiceBots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DiceBotList{DiceBots: s.backend.DiceBots()})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.State())
}

func (s *Server) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Presets())
}

func (s *Server) postConnect(w http.ResponseWriter, r *http.Request) {
	var body ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Preset == "" {
		writeError(w, http.StatusBadRequest, "preset is required")
		return
	}
	if err := s.backend.Connect(body.Preset); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "connecting"})
}

func (s *Server) postDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Disconnect(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, StatusResponse{Status: "disconnecting"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// ErrUnavailable is returned by backends that can no longer serve requests.
var ErrUnavailable = errors.New("service is shutting down")
