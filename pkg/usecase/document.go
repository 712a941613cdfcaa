package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
)

// MaxListLimit caps the page size of ListDocuments
const MaxListLimit = 100

// DocumentUseCase manages the document library
type DocumentUseCase struct {
	repo       interfaces.Repository
	workspaces *model.WorkspaceRegistry
}

func NewDocumentUseCase(repo interfaces.Repository, workspaces *model.WorkspaceRegistry) *DocumentUseCase {
	return &DocumentUseCase{
		repo:       repo,
		workspaces: workspaces,
	}
}

func (uc *DocumentUseCase) save(ctx context.Context, workspaceID string, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	created, err := uc.repo.Document().Create(ctx, workspaceID, doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save document",
			goerr.V(WorkspaceIDKey, workspaceID),
			goerr.V(DocumentTypeKey, doc.DocumentType),
		)
	}

	logging.From(ctx).Info("document saved",
		"document_id", created.ID,
		"document_type", created.DocumentType,
	)
	return created, nil
}

// ListDocumentsInput selects a page of the library
type ListDocumentsInput struct {
	DocumentType types.DocumentType
	Limit        int
	Offset       int
}

// ListDocuments returns saved documents newest first and the total count
func (uc *DocumentUseCase) ListDocuments(ctx context.Context, workspaceID string, input ListDocumentsInput) ([]*model.GeneratedDocument, int, error) {
	if _, err := uc.workspaces.Get(workspaceID); err != nil {
		return nil, 0, err
	}

	limit := input.Limit
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	opts := []interfaces.ListDocumentOption{
		interfaces.WithLimit(limit),
		interfaces.WithOffset(input.Offset),
	}
	if input.DocumentType != "" {
		if !input.DocumentType.ProducesDocument() {
			return nil, 0, goerr.Wrap(ErrUnsupportedDocumentType, "document type is never stored",
				goerr.V(DocumentTypeKey, input.DocumentType))
		}
		opts = append(opts, interfaces.WithDocumentType(input.DocumentType))
	}

	docs, total, err := uc.repo.Document().List(ctx, workspaceID, opts...)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list documents", goerr.V(WorkspaceIDKey, workspaceID))
	}
	return docs, total, nil
}

// GetDocument returns one saved document
func (uc *DocumentUseCase) GetDocument(ctx context.Context, workspaceID string, id model.DocumentID) (*model.GeneratedDocument, error) {
	if _, err := uc.workspaces.Get(workspaceID); err != nil {
		return nil, err
	}

	doc, err := uc.repo.Document().Get(ctx, workspaceID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrDocumentNotFound, "document not found",
				goerr.V(WorkspaceIDKey, workspaceID), goerr.V(DocumentIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get document",
			goerr.V(WorkspaceIDKey, workspaceID), goerr.V(DocumentIDKey, id))
	}
	return doc, nil
}

// DeleteDocument removes a saved document
func (uc *DocumentUseCase) DeleteDocument(ctx context.Context, workspaceID string, id model.DocumentID) error {
	if _, err := uc.workspaces.Get(workspaceID); err != nil {
		return err
	}

	if err := uc.repo.Document().Delete(ctx, workspaceID, id); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(ErrDocumentNotFound, "document not found",
				goerr.V(WorkspaceIDKey, workspaceID), goerr.V(DocumentIDKey, id))
		}
		return goerr.Wrap(err, "failed to delete document",
			goerr.V(WorkspaceIDKey, workspaceID), goerr.V(DocumentIDKey, id))
	}

	logging.From(ctx).Info("document deleted", "document_id", id, WorkspaceIDKey, workspaceID)
	return nil
}
