package services

import (
	"sync"
	"time"
)

// DefaultStatusTTL is how long a transient status message stays visible.
const DefaultStatusTTL = 5 * time.Second

// StateService holds short-lived application state shown next to the
// connection status, such as "Preset saved" or a persistence failure.
type StateService struct {
	mu      sync.RWMutex
	message string
	expires time.Time

	// now is replaced in tests.
	now func() time.Time
}

// NewStateService creates and initializes a new StateService instance.
func NewStateService() *StateService {
	return &StateService{now: time.Now}
}

// SetTransientStatus shows message for ttl. A non-positive ttl uses DefaultStatusTTL.
func (s *StateService) SetTransientStatus(message string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.expires = s.now().Add(ttl)
}

// TransientStatus returns the current message, or "" once it has expired.
func (s *StateService) TransientStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.message == "" || !s.now().Before(s.expires) {
		return ""
	}
	return s.message
}

// ClearTransientStatus removes the current message.
func (s *StateService) ClearTransientStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ""
	s.expires = time.Time{}
}
