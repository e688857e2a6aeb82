package view

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists the session token between runs, the way the page kept
// it in localStorage.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// MemoryStore is an in-process TokenStore, mainly for tests.
type MemoryStore struct {
	token string
}

func (s *MemoryStore) Load() (string, error) { return s.token, nil }
func (s *MemoryStore) Save(t string) error { s.token = t; return nil }
func (s *MemoryStore) Clear() error { s.token = ""; return nil }

// FileStore keeps the token in a file with owner-only permissions.
type FileStore struct {
	Path string
}

func (s *FileStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(token+"\n"), 0o600)
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
