package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/miradorstack/mirador-pm/internal/models"
)

// FileStore loads a process log exported as JSON from disk. It backs local
// setups where no event store service runs.
type FileStore struct {
	path string
}

// NewFileStore constructs a store reading from the given export path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the export location, used for change watching.
func (s *FileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// FetchEvents reads and decodes the export. The engine revalidates every
// event, so only the wire shape is enforced here.
func (s *FileStore) FetchEvents(ctx context.Context) ([]models.Event, error) {
	if s == nil || s.path == "" {
		return nil, fmt.Errorf("file store path not configured")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read event export: %w", err)
	}

	var export struct {
		Events []wireEvent `json:"events"`
	}
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode event export: %w", err)
	}
	return fromWireEvents(export.Events), nil
}
