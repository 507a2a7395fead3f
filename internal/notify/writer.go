package notify

import (
	"fmt"
	"io"
	"sync"
)

// WriterSink renders notifications as single text lines, one per message.
type WriterSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterSink(out io.Writer) *WriterSink {
	return &WriterSink{out: out}
}

func (w *WriterSink) Show(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "[%s] %s\n", n.Severity, n.Message)
}
