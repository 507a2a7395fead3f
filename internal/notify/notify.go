// Package notify surfaces short-lived, severity-tagged status messages and
// retires them automatically.
package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultTTL is how long a notification stays in the active set.
const DefaultTTL = 5 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one ephemeral status message.
type Notification struct {
	Message   string
	Severity  Severity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Sink receives notifications for display the moment they are raised.
type Sink interface {
	Show(Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Notification)

func (f SinkFunc) Show(n Notification) {
	f(n)
}

// Service owns the active notification set. Notifications are independent:
// no de-duplication, no queueing, multiple may be visible at once.
type Service struct {
	logger *slog.Logger
	sink   Sink
	ttl    time.Duration

	mu     sync.Mutex
	nextID int
	active map[int]Notification
}

// NewService builds a notification service. A nil sink is allowed; ttl <= 0
// falls back to DefaultTTL.
func NewService(logger *slog.Logger, sink Sink, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		logger: logger,
		sink:   sink,
		ttl:    ttl,
		active: make(map[int]Notification),
	}
}

// Notify creates a notification, makes it visible immediately, and
// schedules its removal after the fixed TTL regardless of further activity.
func (s *Service) Notify(message string, severity Severity) {
	now := time.Now()
	n := Notification{
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.active[id] = n
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("notification", "severity", string(severity), "message", message)
	}
	if s.sink != nil {
		s.sink.Show(n)
	}

	time.AfterFunc(s.ttl, func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	})
}

// Active returns the currently visible notifications in creation order.
func (s *Service) Active() []Notification {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.active))
	for id, n := range s.active {
		if now.Before(n.ExpiresAt) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	out := make([]Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.active[id])
	}
	return out
}
