package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// cachedSession is the on-disk shape: the user profile and the token,
// stored together and cleared together.
type cachedSession struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type fileStore struct {
	path string
}

func newFileStore(path string) *fileStore {
	return &fileStore{path: path}
}

// load returns nil (no error) when the cache is missing or unreadable;
// a broken cache degrades to anonymous rather than failing startup.
func (s *fileStore) load() (*cachedSession, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session cache: %w", err)
	}

	var cached cachedSession
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil
	}
	if cached.Token == "" {
		return nil, nil
	}
	return &cached, nil
}

func (s *fileStore) save(cached *cachedSession) error {
	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

func (s *fileStore) clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session cache: %w", err)
	}
	return nil
}
