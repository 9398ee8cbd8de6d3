package log

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Logger receives structured events from the tree, the registry and the
// protocol layers. Pass nil or NoopLogger to disable event logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and must not
	// block: the tree calls Log while holding its write lock.
	Log(event Event)
}

// NoopLogger discards all events. It is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MultiLogger fans events out to several loggers, typically a SlogAdapter
// for the console and a FileLogger for later analysis.
type MultiLogger []Logger

// NewMultiLogger creates a MultiLogger, skipping nil loggers.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	m := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

// Log sends the event to all loggers.
func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}

// FileLogger appends CBOR-encoded events to a .rtlog file through a buffer.
// Events are flushed on Flush and Close.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	encoder *cbor.Encoder
	failed  int
	closed  bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{file: f, buf: buf, encoder: NewEncoder(buf)}, nil
}

// Log encodes the event. Encoding failures are counted, not returned:
// event logging never disrupts the operation being logged.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.failed++
	}
}

// Failed returns the number of events that could not be written.
func (l *FileLogger) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.buf.Flush()
}

// Close flushes and closes the file. Later Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.buf.Flush(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

// StreamLogger writes CBOR-encoded events to an arbitrary writer.
type StreamLogger struct {
	mu      sync.Mutex
	encoder *cbor.Encoder
}

// NewStreamLogger creates a StreamLogger writing to w.
func NewStreamLogger(w io.Writer) *StreamLogger {
	return &StreamLogger{encoder: NewEncoder(w)}
}

// Log encodes the event, dropping it on error.
func (l *StreamLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.encoder.Encode(event)
}

var (
	_ Logger = NoopLogger{}
	_ Logger = MultiLogger(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*StreamLogger)(nil)
)
