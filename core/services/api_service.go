package services

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"bcdice-irc/api"
)

// APIService runs the control service of this process in the background.
type APIService struct {
	Bind string

	server *api.Server

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
	serveErr error
}

// NewAPIService creates and initializes a new APIService instance.
func NewAPIService(bind string, backend api.Backend) *APIService {
	return &APIService{
		Bind:   bind,
		server: api.NewServer(backend),
	}
}

// Start binds the listening socket and serves in a goroutine.
func (s *APIService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("APIService: already listening on %s", s.listener.Addr())
	}
	l, err := net.Listen("tcp", s.Bind)
	if err != nil {
		return fmt.Errorf("APIService: cannot listen on %s: %w", s.Bind, err)
	}
	s.listener = l
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := s.server.Serve(l)
		if err != nil {
			log.Printf("APIService: serve: %v", err)
		}
		s.mu.Lock()
		s.serveErr = err
		s.mu.Unlock()
	}(s.done)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *APIService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// StopRequested is closed when a client asks the process to stop.
func (s *APIService) StopRequested() <-chan struct{} {
	return s.server.StopRequested()
}

// Shutdown stops the server and waits for the serve goroutine.
func (s *APIService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}
