// Package session persists the signed-in user's token between CLI runs.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Session is safe for concurrent use. The zero value is an anonymous session
// with no backing file.
type Session struct {
	mu    sync.RWMutex
	path  string
	state state
}

type state struct {
	Token  string `toml:"token"`
	UserID string `toml:"user_id"`
	Name   string `toml:"name"`
}

// DefaultPath is ~/.tumbi/session.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("session: resolve home: %w", err)
	}
	return filepath.Join(home, ".tumbi", "session.toml"), nil
}

// Load reads path. A missing file yields an empty session bound to path.
func Load(path string) (*Session, error) {
	s := &Session{path: path}
	if _, err := toml.DecodeFile(path, &s.state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserID
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Name
}

func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// Set replaces the credentials and writes them to disk.
func (s *Session) Set(token, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{Token: token, UserID: userID, Name: name}
	return s.save()
}

// Clear forgets the credentials and removes the file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", s.path, err)
	}
	return nil
}

func (s *Session) save() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("session: open %s: %w", s.path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s.state); err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return nil
}
