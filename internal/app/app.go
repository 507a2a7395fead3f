package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/podium/internal/audio"
	"github.com/rbright/podium/internal/browse"
	"github.com/rbright/podium/internal/cli"
	"github.com/rbright/podium/internal/config"
	"github.com/rbright/podium/internal/doctor"
	"github.com/rbright/podium/internal/engine"
	"github.com/rbright/podium/internal/gateway"
	"github.com/rbright/podium/internal/ipc"
	"github.com/rbright/podium/internal/logging"
	"github.com/rbright/podium/internal/notify"
	"github.com/rbright/podium/internal/pipeline"
	"github.com/rbright/podium/internal/session"
	"github.com/rbright/podium/internal/timer"
	"github.com/rbright/podium/internal/upload"
	"github.com/rbright/podium/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("podium"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("podium"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandRecord:
		return r.commandRecord(ctx, cfgLoaded.Config, logger, parsed.NoOpen)
	case cli.CommandUpload:
		return r.commandUpload(ctx, cfgLoaded.Config, logger, parsed.FilePath, parsed.NoOpen)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		if resp.State == "recording" {
			fmt.Fprintf(r.Stdout, "%s elapsed=%s words=%d\n", resp.State, resp.Elapsed, resp.Words)
			return 0
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active podium session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// commandRecord is the owner-session path: capture speech, serve IPC for
// stop/status, then submit the transcript when the capture ends.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, logger *slog.Logger, noOpen bool) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	controller, code := r.buildController(cfg, logger, noOpen, pipeline.NewSource(cfg, logger))
	if controller == nil {
		return code
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller)
	}()

	if err := controller.StartCapture(ctx); err != nil {
		serverCancel()
		<-serverErrCh
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, "recording; stop with Ctrl-C or `podium stop`")

	submitCtx := ctx
	if waitErr := controller.Wait(ctx); waitErr != nil {
		controller.StopCapture(context.Background())
		submitCtx = context.Background()
	}
	fmt.Fprintln(r.Stdout)

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	outcome, err := controller.SubmitTranscript(submitCtx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("submit transcript failed", "error", err.Error())
		return 1
	}

	logger.Info("submit transcript complete", "presentation_id", outcome.PresentationID)
	fmt.Fprintln(r.Stdout, outcome.URL)
	return 0
}

// commandUpload submits a pre-recorded audio file. No capture, no IPC.
func (r Runner) commandUpload(ctx context.Context, cfg config.Config, logger *slog.Logger, path string, noOpen bool) int {
	sub, err := upload.FromFile(path)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	controller, code := r.buildController(cfg, logger, noOpen, nil)
	if controller == nil {
		return code
	}

	outcome, err := controller.SubmitFile(ctx, sub)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("submit audio failed", "file", path, "error", err.Error())
		return 1
	}

	logger.Info("submit audio complete", "file", path, "presentation_id", outcome.PresentationID)
	fmt.Fprintln(r.Stdout, outcome.URL)
	return 0
}

// buildController wires the session controller from config. A nil return
// means wiring failed and the accompanying exit code should be used.
func (r Runner) buildController(cfg config.Config, logger *slog.Logger, noOpen bool, source session.CaptureSource) (*session.Controller, int) {
	gw, err := gateway.NewClient(gateway.Endpoints{
		BaseURL:          cfg.Service.BaseURL,
		TranscriptPath:   cfg.Service.TranscriptPath,
		UploadPath:       cfg.Service.UploadPath,
		PresentationPath: cfg.Service.PresentationPath,
	}, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return nil, 1
	}

	var sink notify.Sink
	if cfg.Notify.Enable {
		sink = notify.NewWriterSink(r.Stderr)
	}
	notifier := notify.NewService(logger, sink, time.Duration(cfg.Notify.TimeoutMS)*time.Millisecond)

	var navigator session.Navigator
	if cfg.Browse.Enable && !noOpen {
		navigator = browse.NewOpener(cfg, logger)
	}

	controller := session.NewController(session.Options{
		Logger:         logger,
		Source:         source,
		Gateway:        gw,
		Notifier:       notifier,
		Navigator:      navigator,
		Capability:     engine.Probe(engine.StreamConfig{Endpoint: cfg.Engine.Endpoint}),
		TickInterval:   time.Duration(cfg.Capture.TickIntervalMS) * time.Millisecond,
		CaptureCeiling: time.Duration(cfg.Capture.MaxDurationMS) * time.Millisecond,
		RedirectDelay:  time.Duration(cfg.Browse.DelayMS) * time.Millisecond,
		OnTick: func(elapsed time.Duration) {
			fmt.Fprintf(r.Stdout, "\r%s", timer.FormatElapsed(elapsed))
		},
	})
	return controller, 0
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNoSession(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}
