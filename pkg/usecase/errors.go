package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
)

// Sentinel errors for use case layer
var (
	// ErrUnsupportedDocumentType is returned for unknown document types and
	// for types that cannot be generated through the requested operation
	ErrUnsupportedDocumentType = goerr.New("unsupported document type")

	// ErrDocumentNotFound is returned when a saved document does not exist
	ErrDocumentNotFound = goerr.New("document not found")

	// ErrReferenceNotFound is returned when uploaded reference material does
	// not exist
	ErrReferenceNotFound = goerr.New("reference not found")

	// ErrFeatureNotConfigured is returned when an optional collaborator
	// (reference store, article fetcher) is not wired
	ErrFeatureNotConfigured = goerr.New("feature not configured")
)

// Context keys for error values
const (
	WorkspaceIDKey  = "workspace_id"
	DocumentTypeKey = "document_type"
	DocumentIDKey   = "document_id"
	ReferenceIDKey  = "reference_id"
)

func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
