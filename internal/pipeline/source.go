// Package pipeline glues microphone capture to the speech engine stream.
package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/podium/internal/audio"
	"github.com/rbright/podium/internal/config"
	"github.com/rbright/podium/internal/engine"
)

const dialTimeout = 3 * time.Second

// captureClient is the capture surface the pipeline drives.
type captureClient interface {
	Stop() error
	Chunks() <-chan []byte
	BytesCaptured() int64
	RawPCM() []byte
}

// streamClient is the engine surface the pipeline drives.
type streamClient interface {
	SendAudio(chunk []byte) error
	Stop(ctx context.Context) error
	Close() error
}

// Source owns one microphone-to-engine capture instance. It implements
// the session controller's CaptureSource.
type Source struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(context.Context, string, string) (audio.Selection, error)
	dialStream   func(context.Context, engine.StreamConfig, engine.Handler) (streamClient, error)
	startCapture func(context.Context, audio.Device) (captureClient, error)

	mu        sync.Mutex
	started   bool
	selection audio.Selection
	capture   captureClient
	stream    streamClient
	sendDone  chan struct{}

	debugEngineFile *os.File
}

// NewSource constructs a capture source from runtime config.
func NewSource(cfg config.Config, logger *slog.Logger) *Source {
	return &Source{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		dialStream: func(ctx context.Context, streamCfg engine.StreamConfig, handler engine.Handler) (streamClient, error) {
			return engine.DialStream(ctx, streamCfg, handler)
		},
		startCapture: func(ctx context.Context, device audio.Device) (captureClient, error) {
			return audio.StartCapture(ctx, device)
		},
	}
}

// Start resolves device selection, dials the engine stream, and begins
// forwarding captured audio. Engine events are delivered to handler from
// the stream's receive loop.
func (s *Source) Start(ctx context.Context, handler engine.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("capture source already started")
	}

	selection, err := s.selectDevice(ctx, s.cfg.Audio.Input, s.cfg.Audio.Fallback)
	if err != nil {
		return err
	}
	s.selection = selection
	if selection.Warning != "" {
		s.logWarn(selection.Warning)
	}

	if s.cfg.Debug.EnableEngineDump {
		file, ferr := createDebugFile("engine", "jsonl")
		if ferr != nil {
			return ferr
		}
		s.debugEngineFile = file
	}

	stream, err := s.dialStream(ctx, engine.StreamConfig{
		Endpoint:         s.cfg.Engine.Endpoint,
		LanguageCode:     s.cfg.Engine.LanguageCode,
		Model:            s.cfg.Engine.Model,
		InterimResults:   s.cfg.Engine.InterimResults,
		DialTimeout:      dialTimeout,
		DebugMessageSink: s.debugSinkLocked(),
	}, handler)
	if err != nil {
		s.closeDebugArtifactsLocked()
		return err
	}
	s.stream = stream

	capture, err := s.startCapture(ctx, selection.Device)
	if err != nil {
		_ = stream.Close()
		s.closeDebugArtifactsLocked()
		return err
	}
	s.capture = capture

	s.sendDone = make(chan struct{})
	go s.sendLoop(capture, stream, s.sendDone)

	s.started = true
	return nil
}

// Stop ends capture and closes the stream gracefully so the engine can
// flush pending results before the receive loop ends.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	capture := s.capture
	stream := s.stream
	sendDone := s.sendDone
	selection := s.selection
	s.capture = nil
	s.stream = nil
	s.sendDone = nil
	s.mu.Unlock()

	var firstErr error
	if capture != nil {
		if err := capture.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if sendDone != nil {
		<-sendDone
	}
	if stream != nil {
		if err := stream.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if capture != nil {
		s.writeDebugAudio(capture.RawPCM())
		s.logInfo("capture pipeline stopped",
			"device", DescribeDevice(selection.Device),
			"bytes", capture.BytesCaptured(),
		)
	}
	s.closeDebugArtifacts()
	return firstErr
}

// sendLoop forwards capture chunks to the engine until capture ends.
func (s *Source) sendLoop(capture captureClient, stream streamClient, done chan struct{}) {
	defer close(done)

	for chunk := range capture.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		if err := stream.SendAudio(chunk); err != nil {
			s.logWarn(fmt.Sprintf("send audio chunk: %v", err))
			_ = capture.Stop()
			return
		}
	}
}

// debugSinkLocked returns the open engine dump sink, if any. Callers hold mu.
func (s *Source) debugSinkLocked() *os.File {
	return s.debugEngineFile
}

// DescribeDevice formats device metadata for logs and doctor output.
func DescribeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (s *Source) logWarn(message string) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(message)
}

func (s *Source) logInfo(message string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Info(message, args...)
}

// createDebugFile creates timestamped debug artifacts under state/podium/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "podium", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// closeDebugArtifacts closes open debug sinks.
func (s *Source) closeDebugArtifacts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDebugArtifactsLocked()
}

func (s *Source) closeDebugArtifactsLocked() {
	if s.debugEngineFile != nil {
		_ = s.debugEngineFile.Close()
		s.debugEngineFile = nil
	}
}

// writeDebugAudio writes raw PCM to WAV when debug.audio_dump is enabled.
func (s *Source) writeDebugAudio(rawPCM []byte) {
	if !s.cfg.Debug.EnableAudioDump || len(rawPCM) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		s.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if err := writePCM16WAV(file, rawPCM, 16000, 1); err != nil {
		s.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// writePCM16WAV writes raw little-endian PCM bytes with a minimal WAV header.
func writePCM16WAV(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	chunkSize := uint32(36 + len(pcm))
	subChunk2Size := uint32(len(pcm))

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], chunkSize)
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], subChunk2Size)

	if _, err := file.Write(header); err != nil {
		return err
	}
	_, err := file.Write(pcm)
	return err
}
