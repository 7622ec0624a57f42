package permission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore persists one PermissionSnapshot document per session id under a
// directory, mirroring the "one document per session id" layout the durable
// session and snapshot stores use elsewhere in Forge. The store does not
// lock across writes for the same session id; callers must serialize writes
// per session (§4.11).
type FSStore struct {
	dir string
}

// NewFSStore constructs a FSStore rooted at dir, creating it if necessary.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("permission: fs store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("permission: create store directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(sessionID string) string {
	return filepath.Join(s.dir, filepath.Base(sessionID)+".json")
}

// Load implements Store.
func (s *FSStore) Load(_ context.Context, sessionID string) (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("permission: read snapshot for %q: %w", sessionID, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("permission: decode snapshot for %q: %w", sessionID, err)
	}
	return snap, true, nil
}

// Save implements Store. The write is atomic: it writes to a temp file in
// the same directory and renames it into place, so a concurrent Load never
// observes a partially written document.
func (s *FSStore) Save(_ context.Context, sessionID string, snapshot Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("permission: encode snapshot for %q: %w", sessionID, err)
	}
	tmp, err := os.CreateTemp(s.dir, filepath.Base(sessionID)+".*.tmp")
	if err != nil {
		return fmt.Errorf("permission: create temp file for %q: %w", sessionID, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("permission: write temp file for %q: %w", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("permission: close temp file for %q: %w", sessionID, err)
	}
	if err := os.Rename(tmpPath, s.path(sessionID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("permission: rename temp file for %q: %w", sessionID, err)
	}
	return nil
}
