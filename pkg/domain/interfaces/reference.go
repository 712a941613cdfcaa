package interfaces

import (
	"context"

	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

// ReferenceStore keeps uploaded reference material in a blob store
type ReferenceStore interface {
	Put(ctx context.Context, ref *model.Reference) error
	// Get returns ErrNotFound when the reference does not exist
	Get(ctx context.Context, workspaceID string, id model.ReferenceID) (*model.Reference, error)
}
