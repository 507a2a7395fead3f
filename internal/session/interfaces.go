package session

import (
	"context"

	"github.com/rbright/podium/internal/engine"
	"github.com/rbright/podium/internal/gateway"
	"github.com/rbright/podium/internal/notify"
	"github.com/rbright/podium/internal/upload"
)

// CaptureSource abstracts the microphone-to-engine pipeline the
// controller drives during a live recording.
type CaptureSource interface {
	Start(ctx context.Context, handler engine.Handler) error
	Stop(ctx context.Context) error
}

// Gateway is the session-facing subset of the slide service client.
type Gateway interface {
	SubmitTranscript(ctx context.Context, text string) (gateway.Result, error)
	SubmitAudio(ctx context.Context, sub upload.Submission) (gateway.Result, error)
	PresentationURL(id string) string
}

// Notifier raises user-visible status messages.
type Notifier interface {
	Notify(message string, severity notify.Severity)
}

// Navigator opens the generated presentation after a successful submission.
type Navigator interface {
	Open(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// noopSource preserves session flow when live capture is not wired.
type noopSource struct{}

func (noopSource) Start(context.Context, engine.Handler) error { return nil }
func (noopSource) Stop(context.Context) error                  { return nil }

// noopNotifier drops messages when no notification service is wired.
type noopNotifier struct{}

func (noopNotifier) Notify(string, notify.Severity) {}
