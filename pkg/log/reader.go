package log

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	// SessionID filters by exact session ID.
	SessionID string

	// Layer filters by layer.
	Layer *Layer

	// Category filters by category.
	Category *Category

	// PathPrefix keeps events whose path lies at or below this path.
	PathPrefix string

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events before this time.
	TimeEnd *time.Time
}

// Matches reports whether the event passes every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.PathPrefix != "" && !underPath(EventPath(event), f.PathPrefix) {
		return false
	}
	return true
}

func underPath(p, prefix string) bool {
	if prefix == "/" {
		return p != ""
	}
	return p == prefix || strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/")
}

// EventPath returns the tree path an event refers to, or "".
func EventPath(event Event) string {
	switch {
	case event.Mutation != nil:
		return event.Mutation.Path
	case event.Lifecycle != nil:
		return event.Lifecycle.Path
	case event.Diagnostic != nil:
		return event.Diagnostic.Path
	case event.Message != nil:
		return event.Message.Path
	}
	return ""
}

// Reader streams events from a .rtlog file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file for reading events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
