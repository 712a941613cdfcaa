package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
)

// DocumentID is a UUID-based identifier for GeneratedDocument
type DocumentID string

// NewDocumentID generates a new UUID v7 DocumentID so that IDs sort by
// creation time
func NewDocumentID() DocumentID {
	return DocumentID(uuid.Must(uuid.NewV7()).String())
}

// GeneratedDocument is a generation result saved to the document library
type GeneratedDocument struct {
	ID               DocumentID
	WorkspaceID      string
	DocumentType     types.DocumentType
	Title            string
	OrganizationName string
	Field            string
	Markdown         string
	CreatedAt        time.Time
}

// NewGeneratedDocument builds a library entry from a result. The ID and
// CreatedAt are assigned by the repository.
func NewGeneratedDocument(workspaceID string, header DocumentHeader, result *GenerationResult) *GeneratedDocument {
	title := header.Title
	if title == "" {
		title = result.DocumentType.Label()
	}
	return &GeneratedDocument{
		WorkspaceID:      workspaceID,
		DocumentType:     result.DocumentType,
		Title:            title,
		OrganizationName: header.OrganizationName,
		Field:            result.Field,
		Markdown:         result.Document,
	}
}
