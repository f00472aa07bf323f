// Package upload stores answer images in a flat directory, keyed by
// submission and question so files from one grading run never collide.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
)

type Store struct {
	dir string
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory path.
func (s *Store) Dir() string { return s.dir }

// Save writes an answer image as sub<submissionID>_q<questionID>_<filename>
// and returns the full path.
func (s *Store) Save(submissionID, questionID int64, filename string, data []byte) (string, error) {
	name := fmt.Sprintf("sub%d_q%d_%s", submissionID, questionID, filepath.Base(filename))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Count returns the number of stored files.
func (s *Store) Count() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count, nil
}

// Clear removes every stored file, leaving the directory in place.
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
