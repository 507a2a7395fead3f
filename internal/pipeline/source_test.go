package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/podium/internal/audio"
	"github.com/rbright/podium/internal/config"
	"github.com/rbright/podium/internal/engine"
	"github.com/rbright/podium/internal/transcript"
)

type fakeCapture struct {
	chunks     chan []byte
	stopErr    error
	raw        []byte
	bytes      int64
	mu         sync.Mutex
	stopCalled bool
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalled = true
	return f.stopErr
}

func (f *fakeCapture) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalled
}

func (f *fakeCapture) Chunks() <-chan []byte { return f.chunks }

func (f *fakeCapture) BytesCaptured() int64 { return f.bytes }

func (f *fakeCapture) RawPCM() []byte {
	out := make([]byte, len(f.raw))
	copy(out, f.raw)
	return out
}

type fakeStream struct {
	mu         sync.Mutex
	sendErr    error
	stopErr    error
	sendChunks [][]byte
	stopCalled bool
}

func (f *fakeStream) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	copyChunk := make([]byte, len(chunk))
	copy(copyChunk, chunk)
	f.sendChunks = append(f.sendChunks, copyChunk)
	return nil
}

func (f *fakeStream) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalled = true
	return f.stopErr
}

func (f *fakeStream) Close() error { return nil }

func (f *fakeStream) chunks() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendChunks
}

type discardHandler struct{}

func (discardHandler) OnResult(transcript.Segment) {}
func (discardHandler) OnError(error)               {}
func (discardHandler) OnEnd()                      {}

func TestDescribeDevice(t *testing.T) {
	require.Equal(t, "Blue Yeti (alsa_input.yeti)", DescribeDevice(audio.Device{Description: "Blue Yeti", ID: "alsa_input.yeti"}))
	require.Equal(t, "Blue Yeti", DescribeDevice(audio.Device{Description: "Blue Yeti"}))
	require.Equal(t, "alsa_input.yeti", DescribeDevice(audio.Device{ID: "alsa_input.yeti"}))
}

func TestResolveStateDirUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, xdgStateHome, dir)
}

func TestResolveStateDirFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := resolveStateDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state"), dir)
}

func TestCreateDebugFileCreatesExpectedPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	file, err := createDebugFile("engine", "jsonl")
	require.NoError(t, err)
	path := file.Name()
	require.NoError(t, file.Close())

	require.FileExists(t, path)
	require.Contains(t, path, string(filepath.Separator)+"podium"+string(filepath.Separator)+"debug"+string(filepath.Separator))
	require.Contains(t, filepath.Base(path), "engine-")
	require.Equal(t, ".jsonl", filepath.Ext(path))

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestWritePCM16WAVWritesHeaderAndPCM(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "*.wav")
	require.NoError(t, err)

	pcm := []byte{0x01, 0x00, 0xFF, 0x7F}
	require.NoError(t, writePCM16WAV(file, pcm, 16000, 0))
	require.NoError(t, file.Close())

	data, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	require.Len(t, data, 44+len(pcm))

	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))
	require.Equal(t, "data", string(data[36:40]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24])) // channels default to mono
	require.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(data[40:44]))
	require.Equal(t, pcm, data[44:])
}

func TestWriteDebugAudioCreatesWavWhenEnabled(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	cfg := config.Default()
	cfg.Debug.EnableAudioDump = true
	source := NewSource(cfg, nil)

	source.writeDebugAudio([]byte{0x01, 0x00, 0x02, 0x00})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "podium", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
}

func TestWriteDebugAudioSkippedWhenDisabled(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)

	cfg := config.Default()
	cfg.Debug.EnableAudioDump = false
	source := NewSource(cfg, nil)

	source.writeDebugAudio([]byte{0x01, 0x00, 0x02, 0x00})

	matches, err := filepath.Glob(filepath.Join(xdgStateHome, "podium", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestStartFailsWhenAlreadyStarted(t *testing.T) {
	source := NewSource(config.Default(), nil)
	source.started = true

	err := source.Start(context.Background(), discardHandler{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already started")
}

func TestStartFailsWhenAudioSelectionUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	source := NewSource(config.Default(), nil)
	err := source.Start(context.Background(), discardHandler{})
	require.Error(t, err)
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	source := NewSource(config.Default(), nil)
	require.NoError(t, source.Stop(context.Background()))
}

func TestStartWiresDependenciesAndBootsSendLoop(t *testing.T) {
	chunks := make(chan []byte)
	close(chunks)
	capture := &fakeCapture{chunks: chunks}
	stream := &fakeStream{}

	source := NewSource(config.Default(), nil)
	source.selectDevice = func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: "mic-1", Description: "Mic"}}, nil
	}
	source.dialStream = func(_ context.Context, cfg engine.StreamConfig, _ engine.Handler) (streamClient, error) {
		require.Equal(t, config.Default().Engine.Endpoint, cfg.Endpoint)
		require.Equal(t, "en-US", cfg.LanguageCode)
		require.True(t, cfg.InterimResults)
		return stream, nil
	}
	source.startCapture = func(context.Context, audio.Device) (captureClient, error) {
		return capture, nil
	}

	require.NoError(t, source.Start(context.Background(), discardHandler{}))
	require.True(t, source.started)
	require.Equal(t, "mic-1", source.selection.Device.ID)
	require.NotNil(t, source.sendDone)

	require.NoError(t, source.Stop(context.Background()))
	require.True(t, capture.stopped())
	require.True(t, stream.stopCalled)
	require.False(t, source.started)
	require.Nil(t, source.capture)
	require.Nil(t, source.stream)
}

func TestStartClosesStreamWhenCaptureFails(t *testing.T) {
	stream := &fakeStream{}
	closed := false

	source := NewSource(config.Default(), nil)
	source.selectDevice = func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: "mic-1"}}, nil
	}
	source.dialStream = func(context.Context, engine.StreamConfig, engine.Handler) (streamClient, error) {
		return closeRecorder{inner: stream, closed: &closed}, nil
	}
	source.startCapture = func(context.Context, audio.Device) (captureClient, error) {
		return nil, errors.New("no pulse server")
	}

	err := source.Start(context.Background(), discardHandler{})
	require.Error(t, err)
	require.True(t, closed)
	require.False(t, source.started)
}

type closeRecorder struct {
	inner  *fakeStream
	closed *bool
}

func (c closeRecorder) SendAudio(chunk []byte) error   { return c.inner.SendAudio(chunk) }
func (c closeRecorder) Stop(ctx context.Context) error { return c.inner.Stop(ctx) }
func (c closeRecorder) Close() error                   { *c.closed = true; return nil }

func TestSendLoopForwardsChunks(t *testing.T) {
	chunks := make(chan []byte, 4)
	chunks <- []byte{1, 2, 3}
	chunks <- []byte{}
	chunks <- []byte{4, 5}
	close(chunks)

	capture := &fakeCapture{chunks: chunks}
	stream := &fakeStream{}
	source := NewSource(config.Default(), nil)

	done := make(chan struct{})
	source.sendLoop(capture, stream, done)
	<-done

	sent := stream.chunks()
	require.Len(t, sent, 2)
	require.Equal(t, []byte{1, 2, 3}, sent[0])
	require.Equal(t, []byte{4, 5}, sent[1])
}

func TestSendLoopStopsCaptureOnSendError(t *testing.T) {
	chunks := make(chan []byte, 2)
	chunks <- []byte{1, 2, 3}
	close(chunks)

	capture := &fakeCapture{chunks: chunks}
	stream := &fakeStream{sendErr: errors.New("boom")}
	source := NewSource(config.Default(), nil)

	done := make(chan struct{})
	source.sendLoop(capture, stream, done)
	<-done

	require.True(t, capture.stopped())
}

func TestCloseDebugArtifactsClosesFile(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "*.jsonl")
	require.NoError(t, err)

	source := NewSource(config.Default(), nil)
	source.debugEngineFile = file
	source.closeDebugArtifacts()

	_, err = file.Write([]byte("x"))
	require.Error(t, err)
	require.Nil(t, source.debugEngineFile)
}
