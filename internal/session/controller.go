// Package session coordinates the capture-and-submit lifecycle: state
// transitions, transcript accumulation, recording time, and submission flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/podium/internal/engine"
	"github.com/rbright/podium/internal/fsm"
	"github.com/rbright/podium/internal/gateway"
	"github.com/rbright/podium/internal/ipc"
	"github.com/rbright/podium/internal/notify"
	"github.com/rbright/podium/internal/timer"
	"github.com/rbright/podium/internal/transcript"
	"github.com/rbright/podium/internal/upload"
)

var (
	// ErrCapabilityUnavailable indicates live capture cannot work on this
	// system. File upload stays usable.
	ErrCapabilityUnavailable = errors.New("speech recognition not available")
	// ErrRejected indicates the slide service decoded the submission and
	// turned it down.
	ErrRejected = errors.New("submission rejected by slide service")
)

// minTranscriptWords is the floor below which a transcript is not worth
// sending to the slide service.
const minTranscriptWords = 10

// Outcome is the terminal result of a successful submission.
type Outcome struct {
	PresentationID string
	URL            string
}

// Options wires the controller's collaborators. Nil collaborators fall
// back to no-ops so partial wiring stays testable.
type Options struct {
	Logger     *slog.Logger
	Source     CaptureSource
	Gateway    Gateway
	Notifier   Notifier
	Navigator  Navigator
	Capability engine.Capability

	TickInterval   time.Duration
	CaptureCeiling time.Duration
	RedirectDelay  time.Duration

	// OnTick receives elapsed recording time once per interval.
	OnTick func(elapsed time.Duration)
}

// Controller owns the single active capture-and-submit session.
type Controller struct {
	logger     *slog.Logger
	source     CaptureSource
	gw         Gateway
	notifier   Notifier
	navigator  Navigator
	capability engine.Capability

	acc           *transcript.Accumulator
	tickInterval  time.Duration
	ceiling       time.Duration
	redirectDelay time.Duration
	onTick        func(elapsed time.Duration)

	mu             sync.RWMutex
	state          fsm.State
	startedAt      time.Time
	tm             *timer.Recording
	captureDone    chan struct{}
	completed      bool
	presentationID string
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Source == nil {
		opts.Source = noopSource{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = timer.DefaultInterval
	}
	if opts.CaptureCeiling <= 0 {
		opts.CaptureCeiling = timer.DefaultCeiling
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = 1500 * time.Millisecond
	}

	return &Controller{
		logger:        opts.Logger,
		source:        opts.Source,
		gw:            opts.Gateway,
		notifier:      opts.Notifier,
		navigator:     opts.Navigator,
		capability:    opts.Capability,
		acc:           transcript.NewAccumulator(),
		tickInterval:  opts.TickInterval,
		ceiling:       opts.CaptureCeiling,
		redirectDelay: opts.RedirectDelay,
		onTick:        opts.OnTick,
		state:         fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Live returns the committed transcript plus the current interim run.
func (c *Controller) Live() string {
	return c.acc.Live()
}

// Committed returns the final transcript text accumulated so far.
func (c *Controller) Committed() string {
	return c.acc.Committed()
}

// Elapsed returns recording time for the current or most recent capture.
func (c *Controller) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tm == nil {
		return 0
	}
	return c.tm.Elapsed()
}

// Completed reports whether a submission finished successfully.
func (c *Controller) Completed() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.presentationID, c.completed
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// StartCapture begins a live recording. Any transcript from an earlier
// capture is discarded.
func (c *Controller) StartCapture(ctx context.Context) error {
	if !c.capability.Available {
		c.notifier.Notify("Voice recording is not supported on this system. Please upload an audio file instead.", notify.SeverityWarning)
		return fmt.Errorf("%w: %s", ErrCapabilityUnavailable, c.capability.Reason)
	}

	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventStart)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.acc.Reset()
	c.startedAt = time.Now()
	c.completed = false
	c.presentationID = ""
	c.captureDone = make(chan struct{})
	tm := timer.New(c.tickInterval, c.ceiling, c.handleTick, c.handleCeiling)
	c.tm = tm
	c.mu.Unlock()

	if err := c.source.Start(ctx, c); err != nil {
		c.notifier.Notify("Unable to start recording", notify.SeverityError)
		c.finishCapture(ctx, false)
		return fmt.Errorf("start capture: %w", err)
	}

	tm.Start()
	c.logger.Info("capture started", "ceiling", c.ceiling.String())
	return nil
}

// StopCapture ends a live recording. Safe to call from any state and
// from any trigger source; only the first call during a recording acts.
func (c *Controller) StopCapture(ctx context.Context) {
	c.finishCapture(ctx, true)
}

// finishCapture leaves the recording state exactly once per capture.
func (c *Controller) finishCapture(ctx context.Context, stopSource bool) {
	c.mu.Lock()
	next, err := fsm.Transition(c.state, fsm.EventStop)
	if err != nil || next == c.state {
		c.mu.Unlock()
		return
	}
	c.state = next
	tm := c.tm
	done := c.captureDone
	c.captureDone = nil
	c.startedAt = time.Time{}
	c.mu.Unlock()

	elapsed := time.Duration(0)
	if tm != nil {
		tm.Stop()
		elapsed = tm.Elapsed()
	}
	if stopSource {
		if err := c.source.Stop(ctx); err != nil {
			c.logger.Warn("capture source stop", "error", err)
		}
	}
	if done != nil {
		close(done)
	}
	c.logger.Info("capture stopped", "elapsed", timer.FormatElapsed(elapsed))
}

// Wait blocks until the current capture ends or ctx is cancelled.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.RLock()
	done := c.captureDone
	c.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// OnResult feeds one recognition segment into the accumulator. Segments
// arriving after the recording stopped are dropped.
func (c *Controller) OnResult(seg transcript.Segment) {
	c.mu.RLock()
	recording := c.state == fsm.StateRecording
	c.mu.RUnlock()
	if !recording {
		return
	}
	c.acc.Add(seg)
}

// OnError surfaces an engine failure and ends the capture.
func (c *Controller) OnError(err error) {
	c.logger.Error("speech recognition", "error", err)
	c.notifier.Notify("Speech recognition error: "+err.Error(), notify.SeverityError)
	c.finishCapture(context.Background(), true)
}

// OnEnd handles the engine closing the stream on its own.
func (c *Controller) OnEnd() {
	c.finishCapture(context.Background(), false)
}

func (c *Controller) handleTick(elapsed time.Duration) {
	if c.onTick != nil {
		c.onTick(elapsed)
	}
}

func (c *Controller) handleCeiling() {
	minutes := int(c.ceiling.Minutes())
	c.notifier.Notify(fmt.Sprintf("Recording stopped after %d minutes", minutes), notify.SeverityInfo)
	c.finishCapture(context.Background(), true)
}

// SubmitTranscript sends the accumulated transcript to the slide service.
// A live recording is stopped first.
func (c *Controller) SubmitTranscript(ctx context.Context) (Outcome, error) {
	c.finishCapture(ctx, true)

	text := strings.TrimSpace(c.acc.Committed())
	if text == "" {
		c.notifier.Notify("No transcript available", notify.SeverityError)
		return Outcome{}, &upload.ValidationError{Reason: "no transcript available"}
	}
	if words := wordCount(text); words < minTranscriptWords {
		c.notifier.Notify("Transcript too short. Please provide at least 10 words.", notify.SeverityError)
		return Outcome{}, &upload.ValidationError{
			Reason: fmt.Sprintf("transcript has %d words; at least %d required", words, minTranscriptWords),
		}
	}

	if err := c.transition(fsm.EventSubmit); err != nil {
		return Outcome{}, err
	}
	c.logger.Info("submitting transcript", "words", wordCount(text))

	result, err := c.gw.SubmitTranscript(ctx, text)
	return c.resolve(ctx, result, err,
		"Slides generated successfully!",
		"Failed to generate slides",
		"An error occurred while generating slides",
	)
}

// SubmitFile validates and uploads a pre-recorded audio file. Validation
// failure leaves session state untouched.
func (c *Controller) SubmitFile(ctx context.Context, sub upload.Submission) (Outcome, error) {
	if err := upload.Validate(sub); err != nil {
		c.notifier.Notify(err.Error(), notify.SeverityError)
		return Outcome{}, err
	}

	c.finishCapture(ctx, true)
	if err := c.transition(fsm.EventSubmit); err != nil {
		return Outcome{}, err
	}
	c.logger.Info("submitting audio file", "file", sub.Filename, "bytes", sub.Size)

	result, err := c.gw.SubmitAudio(ctx, sub)
	return c.resolve(ctx, result, err,
		"Audio uploaded and processed successfully!",
		"Failed to process audio file",
		"An error occurred while uploading the file",
	)
}

// resolve leaves the processing state on every path. Success additionally
// opens the presentation after a fixed delay.
func (c *Controller) resolve(ctx context.Context, result gateway.Result, err error, successMsg, rejectedFallback, networkMsg string) (Outcome, error) {
	if err != nil {
		_ = c.transition(fsm.EventSubmitFailed)
		c.logger.Error("submission failed", "error", err)
		c.notifier.Notify(networkMsg, notify.SeverityError)
		return Outcome{}, err
	}

	if !result.Success {
		_ = c.transition(fsm.EventSubmitFailed)
		message := strings.TrimSpace(result.Error)
		if message == "" {
			message = rejectedFallback
		}
		c.logger.Error("submission rejected", "error", message)
		c.notifier.Notify(message, notify.SeverityError)
		return Outcome{}, fmt.Errorf("%w: %s", ErrRejected, message)
	}

	if err := c.transition(fsm.EventSubmitOK); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{
		PresentationID: result.PresentationID,
		URL:            c.gw.PresentationURL(result.PresentationID),
	}

	c.mu.Lock()
	c.completed = true
	c.presentationID = result.PresentationID
	c.mu.Unlock()

	c.logger.Info("submission succeeded", "presentation_id", outcome.PresentationID)
	c.notifier.Notify(successMsg, notify.SeveritySuccess)
	c.openAfterDelay(ctx, outcome.URL)
	return outcome, nil
}

// openAfterDelay gives the success notification time to land before the
// presentation opens.
func (c *Controller) openAfterDelay(ctx context.Context, url string) {
	if c.navigator == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(c.redirectDelay):
	}

	if err := c.navigator.Open(ctx, url); err != nil {
		c.logger.Warn("open presentation", "url", url, "error", err)
	}
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		state := c.State()
		return ipc.Response{
			OK:      true,
			State:   string(state),
			Elapsed: timer.FormatElapsed(c.Elapsed()),
			Words:   wordCount(c.acc.Committed()),
			Message: "status",
		}
	case "stop":
		state := c.State()
		if state != fsm.StateRecording {
			return ipc.Response{OK: true, State: string(state), Message: "not recording"}
		}
		c.StopCapture(ctx)
		return ipc.Response{OK: true, State: string(c.State()), Message: "stop requested"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
