package interfaces

import (
	"context"

	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

// DocumentRepository persists generated documents per workspace
type DocumentRepository interface {
	// Create assigns ID and CreatedAt, then saves doc
	Create(ctx context.Context, workspaceID string, doc *model.GeneratedDocument) (*model.GeneratedDocument, error)

	// Get returns ErrNotFound when the document does not exist
	Get(ctx context.Context, workspaceID string, id model.DocumentID) (*model.GeneratedDocument, error)

	// List returns documents ordered by CreatedAt descending with pagination,
	// and the total count matching opts
	List(ctx context.Context, workspaceID string, opts ...ListDocumentOption) ([]*model.GeneratedDocument, int, error)

	// Delete returns ErrNotFound when the document does not exist
	Delete(ctx context.Context, workspaceID string, id model.DocumentID) error
}
