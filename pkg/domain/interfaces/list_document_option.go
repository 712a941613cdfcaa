package interfaces

import "github.com/secmon-lab/safetydocs/pkg/domain/types"

// DefaultListLimit is used when no limit is given
const DefaultListLimit = 20

// ListDocumentOption is a functional option for DocumentRepository.List
type ListDocumentOption func(*listDocumentConfig)

type listDocumentConfig struct {
	documentType *types.DocumentType
	limit        int
	offset       int
}

// WithDocumentType filters documents by type
func WithDocumentType(t types.DocumentType) ListDocumentOption {
	return func(c *listDocumentConfig) {
		c.documentType = &t
	}
}

// WithLimit sets the page size. Non-positive values keep the default.
func WithLimit(limit int) ListDocumentOption {
	return func(c *listDocumentConfig) {
		if limit > 0 {
			c.limit = limit
		}
	}
}

// WithOffset skips the first offset documents
func WithOffset(offset int) ListDocumentOption {
	return func(c *listDocumentConfig) {
		if offset > 0 {
			c.offset = offset
		}
	}
}

// BuildListDocumentConfig builds a listDocumentConfig from options
func BuildListDocumentConfig(opts ...ListDocumentOption) *listDocumentConfig {
	cfg := &listDocumentConfig{limit: DefaultListLimit}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// DocumentType returns the type filter, or nil if not set
func (c *listDocumentConfig) DocumentType() *types.DocumentType {
	return c.documentType
}

func (c *listDocumentConfig) Limit() int {
	return c.limit
}

func (c *listDocumentConfig) Offset() int {
	return c.offset
}
