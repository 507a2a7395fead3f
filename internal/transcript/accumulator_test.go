package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommittedIsFinalConcatenationInArrivalOrder(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "hello", Final: false, Index: 0})
	acc.Add(Segment{Text: "hello world", Final: true, Index: 0})
	acc.Add(Segment{Text: "how", Final: false, Index: 1})
	acc.Add(Segment{Text: "how are", Final: false, Index: 1})
	acc.Add(Segment{Text: "how are you", Final: true, Index: 1})

	require.Equal(t, "hello world how are you", acc.Committed())
	require.Equal(t, acc.Committed(), acc.Live())
}

func TestRedeliveredFinalIsNotDuplicated(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "first part", Final: true, Index: 0})
	acc.Add(Segment{Text: "first part", Final: true, Index: 0})
	acc.Add(Segment{Text: "second part", Final: true, Index: 1})

	require.Equal(t, "first part second part", acc.Committed())
}

func TestStaleInterimBelowCursorIsDropped(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "done", Final: true, Index: 3})
	acc.Add(Segment{Text: "late interim", Final: false, Index: 1})

	require.Equal(t, "done", acc.Committed())
	require.Equal(t, "done", acc.Live())
}

func TestInterimSupersededByLaterSegment(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "provis", Final: false, Index: 0})
	require.Equal(t, "provis", acc.Live())

	acc.Add(Segment{Text: "provisional", Final: false, Index: 0})
	require.Equal(t, "provisional", acc.Live())
	require.Equal(t, "", acc.Committed())

	acc.Add(Segment{Text: "provisional text", Final: true, Index: 0})
	require.Equal(t, "provisional text", acc.Committed())
	require.Equal(t, "provisional text", acc.Live())
}

func TestLiveAppendsInterimAfterCommitted(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "hello world", Final: true, Index: 0})
	acc.Add(Segment{Text: "and", Final: false, Index: 1})

	require.Equal(t, "hello world", acc.Committed())
	require.Equal(t, "hello world and", acc.Live())
}

func TestWhitespaceNormalizationAndEmptyFinals(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "  spaced   out  ", Final: true, Index: 0})
	acc.Add(Segment{Text: "   ", Final: true, Index: 1})
	acc.Add(Segment{Text: "tail", Final: true, Index: 2})

	require.Equal(t, "spaced out tail", acc.Committed())
}

func TestResetClearsEverything(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(Segment{Text: "old session", Final: true, Index: 0})
	acc.Add(Segment{Text: "interim", Final: false, Index: 1})
	acc.Reset()

	require.Equal(t, "", acc.Committed())
	require.Equal(t, "", acc.Live())

	// Cursor resets too: index 0 is acceptable again.
	acc.Add(Segment{Text: "new session", Final: true, Index: 0})
	require.Equal(t, "new session", acc.Committed())
}
