package client

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gear6io/metabridge/utils"
)

// Session is the per-client execution state: identity, settings, current
// database, output streams, and the storage format registry. Every client
// owns exactly one session and nothing in it is shared with other clients.
type Session struct {
	id      string
	user    string
	logger  zerolog.Logger
	capture *OutputBuffer
	formats *FormatRegistry

	mu        sync.RWMutex
	settings  map[string]string
	currentDB string
	out       io.Writer
	errOut    io.Writer
	info      io.Writer
}

// newSession builds a session for user with its own copy of settings. All
// three output streams start wired to the session's capture buffer.
func newSession(user string, settings map[string]string, logger zerolog.Logger) *Session {
	s := &Session{
		id:        utils.GenerateULIDString(),
		user:      user,
		capture:   &OutputBuffer{},
		formats:   NewFormatRegistry(),
		settings:  make(map[string]string, len(settings)),
		currentDB: "default",
	}
	for k, v := range settings {
		s.settings[k] = v
	}
	s.out, s.errOut, s.info = s.capture, s.capture, s.capture
	s.logger = logger.With().Str("session", s.id).Logger()

	s.logger.Debug().
		Str("user", user).
		Interface("settings", redactSettings(s.settings)).
		Msg("Session opened")
	return s
}

// redactSettings masks values whose key looks credential-bearing so they
// never reach the log stream.
func redactSettings(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		if strings.Contains(strings.ToLower(k), "password") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = v
	}
	return out
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// User returns the identity the session runs as.
func (s *Session) User() string { return s.user }

// Formats returns the session's storage format registry.
func (s *Session) Formats() *FormatRegistry { return s.formats }

// CurrentDatabase returns the database unqualified names resolve against.
func (s *Session) CurrentDatabase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDB
}

func (s *Session) setCurrentDatabase(db string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDB = db
}

// Value looks up one session setting.
func (s *Session) Value(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok
}

// SetValue stores one session setting.
func (s *Session) SetValue(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}

// Settings returns a copy of the session's settings.
func (s *Session) Settings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// SetOutputStream redirects command output. A nil writer restores the
// session's capture buffer.
func (s *Session) SetOutputStream(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == nil {
		w = s.capture
	}
	s.out = w
}

// SetErrorStream redirects command error output. A nil writer restores the
// session's capture buffer.
func (s *Session) SetErrorStream(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == nil {
		w = s.capture
	}
	s.errOut = w
}

// SetInfoStream redirects informational output. A nil writer restores the
// session's capture buffer.
func (s *Session) SetInfoStream(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == nil {
		w = s.capture
	}
	s.info = w
}

// Out returns the current command output stream.
func (s *Session) Out() io.Writer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.out
}

// ErrOut returns the current command error stream.
func (s *Session) ErrOut() io.Writer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errOut
}

// Info returns the current informational stream.
func (s *Session) Info() io.Writer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// CapturedOutput returns what the capture buffer has retained. Useful for
// surfacing command output next to an error.
func (s *Session) CapturedOutput() string {
	return s.capture.String()
}
