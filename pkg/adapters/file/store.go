package file

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/jackpatch/pkg/domain"
	"github.com/moby/sys/atomicwriter"
)

// Store persists patches as XML files on disk.
// Writes go through a temporary file and a rename, so a crash mid-save
// never leaves a truncated patch behind.
type Store struct {
	// Perm is the mode of newly written files.
	Perm os.FileMode
}

// New creates a file store.
func New() *Store {
	return &Store{Perm: 0644}
}

// Load reads and decodes the patch at path.
func (s *Store) Load(ctx context.Context, path string) (domain.ConnectionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPatchNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// Save encodes set and atomically replaces the file at path.
func (s *Store) Save(ctx context.Context, path string, set domain.ConnectionSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create patch directory: %w", err)
	}
	return atomicwriter.WriteFile(path, data, s.Perm)
}
