package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTicksThenSingleTerminalSignal(t *testing.T) {
	var ticks atomic.Int32
	var terminals atomic.Int32
	done := make(chan struct{})

	r := New(10*time.Millisecond, 55*time.Millisecond,
		func(time.Duration) { ticks.Add(1) },
		func() {
			terminals.Add(1)
			close(done)
		},
	)
	r.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("terminal signal never fired")
	}

	// No ticks may follow the terminal signal.
	after := ticks.Load()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, after, ticks.Load())
	require.Equal(t, int32(1), terminals.Load())
	require.GreaterOrEqual(t, ticks.Load(), int32(1))
}

func TestTerminalFiresAtOrAfterCeiling(t *testing.T) {
	done := make(chan struct{})
	r := New(5*time.Millisecond, 40*time.Millisecond, nil, func() { close(done) })

	start := time.Now()
	r.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("terminal signal never fired")
	}
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStopIsIdempotentAndHaltsTicks(t *testing.T) {
	var ticks atomic.Int32
	r := New(5*time.Millisecond, time.Hour, func(time.Duration) { ticks.Add(1) }, nil)

	r.Stop() // never started: no-op
	r.Start()
	time.Sleep(25 * time.Millisecond)
	r.Stop()
	r.Stop()

	// At most one spurious tick may land after Stop.
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	require.LessOrEqual(t, ticks.Load(), settled+1)
}

func TestElapsedAdvancesWhileRunning(t *testing.T) {
	r := New(time.Hour, time.Hour, nil, nil)
	require.Equal(t, time.Duration(0), r.Elapsed())

	r.Start()
	defer r.Stop()
	time.Sleep(15 * time.Millisecond)
	require.GreaterOrEqual(t, r.Elapsed(), 10*time.Millisecond)
}

func TestFormatElapsed(t *testing.T) {
	require.Equal(t, "00:00", FormatElapsed(0))
	require.Equal(t, "00:09", FormatElapsed(9*time.Second))
	require.Equal(t, "01:05", FormatElapsed(65*time.Second))
	require.Equal(t, "03:00", FormatElapsed(180*time.Second))
	require.Equal(t, "00:00", FormatElapsed(-time.Second))
}
