package ports

import (
	"context"

	"github.com/aretw0/jackpatch/pkg/domain"
)

// PatchStore persists the desired connection set.
type PatchStore interface {
	// Load reads the set stored at path.
	// Returns domain.ErrPatchNotFound if nothing is stored there.
	Load(ctx context.Context, path string) (domain.ConnectionSet, error)

	// Save replaces whatever is stored at path with set.
	Save(ctx context.Context, path string, set domain.ConnectionSet) error
}
