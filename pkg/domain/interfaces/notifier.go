package interfaces

import (
	"context"

	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

// Notifier announces saved documents to a workspace's channel
type Notifier interface {
	DocumentSaved(ctx context.Context, channel string, doc *model.GeneratedDocument) error
}
