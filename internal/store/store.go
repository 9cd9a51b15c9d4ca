// Package store implements the user store: a single disk-backed JSON
// document mapping username to password hash and an optional saved game
// snapshot. It is the sole mutator of user records; every write is
// serialized and flushed atomically.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/battleshipd/server/internal/model"
)

// ErrUserExists is returned by Register when the username is taken.
var ErrUserExists = errors.New("store: username already registered")

// ErrPasswordTooShort is returned by Register when the password is
// shorter than the configured minimum.
var ErrPasswordTooShort = errors.New("store: password too short")

// ErrNoSavedGame is returned by LoadGame when the user has no saved game.
var ErrNoSavedGame = errors.New("store: no saved game")

// ErrUnknownUser is returned when an operation targets a username the
// store has no record for.
var ErrUnknownUser = errors.New("store: unknown user")

type record struct {
	Hash      string          `json:"mdp_hash"`
	SavedGame *model.Snapshot `json:"partie_sauvegardee"`
}

type document struct {
	Users map[string]record `json:"users"`
}

// Store is the JSON-document-backed user store. All writes are
// serialized by mu and flushed atomically (write-to-temp + rename).
type Store struct {
	path string
	mu   sync.Mutex
	doc  document
}

// New loads path if it exists, or starts an empty store otherwise.
// Malformed on-disk JSON is treated as an empty store and logged rather
// than failing startup.
func New(path string) (*Store, error) {
	s := &Store{path: path, doc: document{Users: make(map[string]record)}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading user store %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("user store file is malformed, starting with an empty store", "path", path, "err", err)
		return s, nil
	}
	if doc.Users == nil {
		doc.Users = make(map[string]record)
	}
	s.doc = doc
	return s, nil
}

// Register creates a new user record with a bcrypt hash of password.
// Fails if the username already exists or the password is shorter than
// minLength.
func (s *Store) Register(name, password string, minLength int) error {
	if len(password) < minLength {
		return ErrPasswordTooShort
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.doc.Users[name]; exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.doc.Users[name] = record{Hash: string(hash)}
	return s.persistLocked()
}

// Verify reports whether name exists and password matches its stored hash.
func (s *Store) Verify(name, password string) bool {
	s.mu.Lock()
	rec, ok := s.doc.Users[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(rec.Hash), []byte(password)) == nil
}

// HasSavedGame reports whether name has a saved game snapshot.
func (s *Store) HasSavedGame(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Users[name]
	return ok && rec.SavedGame != nil
}

// SaveGame replaces any prior snapshot for name. If snap.Etat is
// "in_progress" it is rewritten to "paused" before persisting, since a
// saved game is by definition not actively being played.
func (s *Store) SaveGame(name string, snap model.Snapshot) error {
	if snap.Etat == string(model.InProgress) {
		snap.Etat = string(model.Paused)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.doc.Users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	rec.SavedGame = &snap
	s.doc.Users[name] = rec
	return s.persistLocked()
}

// LoadGame returns name's saved snapshot, or ErrNoSavedGame if it has none.
func (s *Store) LoadGame(name string) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Users[name]
	if !ok {
		return model.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	if rec.SavedGame == nil {
		return model.Snapshot{}, ErrNoSavedGame
	}
	return *rec.SavedGame, nil
}

// DeleteSavedGame clears name's saved snapshot, if any. Idempotent.
func (s *Store) DeleteSavedGame(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, name)
	}
	if rec.SavedGame == nil {
		return nil
	}
	rec.SavedGame = nil
	s.doc.Users[name] = rec
	return s.persistLocked()
}

// persistLocked writes the current document to disk via a temp file +
// rename, so a crash mid-write never leaves a half-written document in
// place. Caller must hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling user store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating user store directory %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file to %s: %w", s.path, err)
	}
	return nil
}
