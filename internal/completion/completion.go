// Package completion forwards a single prompt to a chat-completion API and
// returns the first choice's text.
package completion

import (
	"context"
	"errors"
	"sync"
)

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("completion returned no choices")

// ErrNotConfigured is returned by a Swappable that holds no service.
var ErrNotConfigured = errors.New("completion service not configured")

// Service turns a prompt into completion text.
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Swappable holds the current Service and lets config reloads replace it
// while requests are in flight.
type Swappable struct {
	mu      sync.RWMutex
	current Service
}

func NewSwappable(svc Service) *Swappable {
	return &Swappable{current: svc}
}

// Set replaces the active service. In-flight calls finish on the old one.
func (s *Swappable) Set(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = svc
}

func (s *Swappable) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.RLock()
	svc := s.current
	s.mu.RUnlock()

	if svc == nil {
		return "", ErrNotConfigured
	}
	return svc.Complete(ctx, prompt)
}
