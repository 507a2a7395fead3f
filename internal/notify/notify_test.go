package notify

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	shown []Notification
}

func (r *recordingSink) Show(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, n)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

func TestNotifyShowsImmediatelyAndExpires(t *testing.T) {
	sink := &recordingSink{}
	svc := NewService(nil, sink, 30*time.Millisecond)

	svc.Notify("slides generated", SeveritySuccess)
	require.Equal(t, 1, sink.count())

	active := svc.Active()
	require.Len(t, active, 1)
	require.Equal(t, "slides generated", active[0].Message)
	require.Equal(t, SeveritySuccess, active[0].Severity)
	require.True(t, active[0].ExpiresAt.After(active[0].CreatedAt))

	require.Eventually(t, func() bool {
		return len(svc.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestMultipleNotificationsAreIndependent(t *testing.T) {
	svc := NewService(nil, nil, time.Minute)

	svc.Notify("same text", SeverityInfo)
	svc.Notify("same text", SeverityInfo)
	svc.Notify("another", SeverityError)

	active := svc.Active()
	require.Len(t, active, 3)
	// Creation order is preserved.
	require.Equal(t, "same text", active[0].Message)
	require.Equal(t, "another", active[2].Message)
}

func TestNilSinkIsSafe(t *testing.T) {
	svc := NewService(nil, nil, time.Minute)
	require.NotPanics(t, func() { svc.Notify("ok", SeverityInfo) })
}

func TestWriterSinkRendersSeverityAndMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	svc := NewService(nil, sink, time.Minute)

	svc.Notify("recording stopped after 3 minutes", SeverityInfo)
	require.Equal(t, "[info] recording stopped after 3 minutes\n", buf.String())
}
