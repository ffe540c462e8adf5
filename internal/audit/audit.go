// Package audit records who did what through the gateway.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Entry is one audited request.
type Entry struct {
	Time       time.Time `json:"time"`
	User       string    `json:"user"`
	Tenant     string    `json:"tenant"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// Sink persists audit entries outside the in-memory ring.
type Sink interface {
	Write(entry Entry) error
}

// Log keeps a bounded in-memory ring of recent entries and forwards each one
// to an optional sink.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	sinks   []Sink
}

// NewLog creates an audit log holding at most max recent entries.
func NewLog(max int, sinks ...Sink) *Log {
	if max <= 0 {
		max = 200
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Log{max: max, sinks: kept}
}

// Add appends an entry, evicting the oldest past the ring bound.
func (l *Log) Add(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	for _, s := range l.sinks {
		// Best-effort persistence; never impacts the request flow.
		_ = s.Write(entry)
	}
}

// List returns a copy of the retained entries, oldest first.
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ListLimit returns at most limit of the newest retained entries.
func (l *Log) ListLimit(limit int) []Entry {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	all := l.List()
	if len(all) <= limit {
		return all
	}
	return all[len(all)-limit:]
}

// FileSink appends audit entries as JSONL.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the JSONL audit file at path. An empty path
// yields a nil sink.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(entry Entry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
