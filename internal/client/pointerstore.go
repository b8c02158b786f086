package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Pointer is the minimal client-side state needed to re-authenticate on this
// device: which credential to claim, and the username it belongs to.
//
// It is written only on registration success, read on every authentication
// attempt, and never expired automatically.
type Pointer struct {
	CredentialID string `json:"credential_id"`
	Username     string `json:"username"`
}

// PointerStore persists the local credential pointer.
//
// The interface exists so the backing can be swapped (secure enclave,
// encrypted storage) without touching ceremony logic.
type PointerStore interface {
	Load() (Pointer, bool, error)
	Save(pointer Pointer) error
}

// FilePointerStore keeps the pointer in a JSON file readable only by the
// owner.
type FilePointerStore struct {
	path string
}

// NewFilePointerStore returns a file-backed pointer store.
func NewFilePointerStore(path string) (*FilePointerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("pointer store path is required")
	}
	return &FilePointerStore{path: filepath.Clean(path)}, nil
}

// Load reads the stored pointer. A missing file is not an error; it reports
// that no pointer exists.
func (s *FilePointerStore) Load() (Pointer, bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Pointer{}, false, nil
		}
		return Pointer{}, false, fmt.Errorf("read pointer file: %w", err)
	}
	var pointer Pointer
	if err := json.Unmarshal(raw, &pointer); err != nil {
		return Pointer{}, false, fmt.Errorf("decode pointer file: %w", err)
	}
	if pointer.CredentialID == "" || pointer.Username == "" {
		return Pointer{}, false, nil
	}
	return pointer, true, nil
}

// Save writes the pointer atomically via a temp file rename.
func (s *FilePointerStore) Save(pointer Pointer) error {
	raw, err := json.Marshal(pointer)
	if err != nil {
		return fmt.Errorf("encode pointer: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create pointer dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write pointer file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace pointer file: %w", err)
	}
	return nil
}
