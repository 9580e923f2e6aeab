// Package state persists CLI session data (bearer token, verification
// resend cooldown) under the per-user state directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/taskdeck/taskdeck/internal/types"
)

const (
	// SessionFile is the cached login session filename.
	SessionFile = "session.json"

	// CooldownFile is the verification-resend cooldown filename.
	CooldownFile = "resend.json"

	// ResendCooldown is how long a user must wait between verification
	// mail resends.
	ResendCooldown = 60 * time.Second
)

// ErrNoSession is returned when no cached session exists.
var ErrNoSession = errors.New("not logged in")

// Session is the cached login: the bearer token plus the user it belongs to.
type Session struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Store reads and writes CLI state files in a single directory.
type Store struct {
	dir string
}

// New creates a state store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

// SaveSession writes the session to disk with owner-only permissions.
func (s *Store) SaveSession(sess Session) error {
	return s.writeJSON(SessionFile, sess)
}

// LoadSession returns the cached session, or ErrNoSession when none exists.
func (s *Store) LoadSession() (Session, error) {
	var sess Session
	if err := s.readJSON(SessionFile, &sess); err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	if sess.Token == "" {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// ClearSession removes the cached session. Missing files are fine.
func (s *Store) ClearSession() error {
	err := os.Remove(filepath.Join(s.dir, SessionFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

type cooldownRecord struct {
	LastResend time.Time `json:"last_resend"`
}

// MarkResend records the current time as the last verification resend.
func (s *Store) MarkResend() error {
	return s.writeJSON(CooldownFile, cooldownRecord{LastResend: time.Now().UTC()})
}

// ResendWait reports how long the caller still has to wait before another
// verification resend. Zero means a resend is allowed now.
func (s *Store) ResendWait() (time.Duration, error) {
	var rec cooldownRecord
	if err := s.readJSON(CooldownFile, &rec); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	remaining := ResendCooldown - time.Since(rec.LastResend)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *Store) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}
