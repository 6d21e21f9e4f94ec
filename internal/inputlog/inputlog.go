// Package inputlog is the optional append-only diagnostic log of decoded
// input requests.
package inputlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "/tmp/connagent/input_request.log"

// Log gates and locates the diagnostic file. The file is opened per call,
// never held between calls.
type Log struct {
	Enabled bool
	Path    string

	open func(path string) (io.WriteCloser, error)
}

// New creates a Log writing to path, or DefaultPath when path is empty.
func New(enabled bool, path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{Enabled: enabled, Path: path, open: openAppend}
}

// Begin starts a session for one call. It returns nil when logging is
// disabled; all Session methods accept a nil receiver.
func (l *Log) Begin(role string) *Session {
	if l == nil || !l.Enabled {
		return nil
	}
	open := l.open
	if open == nil {
		open = openAppend
	}
	return &Session{
		path: l.Path,
		role: role,
		id:   uuid.NewString(),
		open: open,
	}
}

// Session writes the lines of a single call. The file is opened on the
// first Printf; if that fails the session goes quiet and the call carries on.
type Session struct {
	path string
	role string
	id   string
	open func(string) (io.WriteCloser, error)

	w      io.WriteCloser
	failed bool
}

// ID returns the request id stamped on every line of the session.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Printf appends one line.
func (s *Session) Printf(format string, args ...any) {
	if s == nil || s.failed {
		return
	}
	if s.w == nil {
		w, err := s.open(s.path)
		if err != nil {
			s.failed = true
			return
		}
		s.w = w
	}
	if _, err := fmt.Fprintf(s.w, "%s %s: %s\n", s.id, s.role, fmt.Sprintf(format, args...)); err != nil {
		s.failed = true
	}
}

// Close releases the file if one was opened.
func (s *Session) Close() error {
	if s == nil || s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

func openAppend(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening input log: %w", err)
	}
	return f, nil
}
