package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
)

func saveDocuments(t *testing.T, uc *usecase.UseCases, n int) []*model.GeneratedDocument {
	t.Helper()
	var docs []*model.GeneratedDocument
	for i := 0; i < n; i++ {
		got, err := uc.Generation.Generate(context.Background(), testWorkspaceID, types.DocumentTypeMethodStatement,
			methodStatementRequest(t, nil), usecase.GenerateOptions{Save: true})
		gt.NoError(t, err).Required()
		docs = append(docs, got.Document)
	}
	return docs
}

func TestDocumentUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("get and delete a saved document", func(t *testing.T) {
		uc, _ := newTestUseCases(t, &fakeInvoker{})
		saved := saveDocuments(t, uc, 1)[0]

		doc, err := uc.Document.GetDocument(ctx, testWorkspaceID, saved.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, doc.Markdown).Equal("# Generated\n\nBody")
		gt.Value(t, doc.DocumentType).Equal(types.DocumentTypeMethodStatement)

		gt.NoError(t, uc.Document.DeleteDocument(ctx, testWorkspaceID, saved.ID)).Required()

		_, err = uc.Document.GetDocument(ctx, testWorkspaceID, saved.ID)
		gt.Error(t, err).Is(usecase.ErrDocumentNotFound)

		err = uc.Document.DeleteDocument(ctx, testWorkspaceID, saved.ID)
		gt.Error(t, err).Is(usecase.ErrDocumentNotFound)
	})

	t.Run("list pages and filters", func(t *testing.T) {
		uc, _ := newTestUseCases(t, &fakeInvoker{})
		saveDocuments(t, uc, 3)

		docs, total, err := uc.Document.ListDocuments(ctx, testWorkspaceID, usecase.ListDocumentsInput{Limit: 2})
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(3)
		gt.Array(t, docs).Length(2)

		docs, total, err = uc.Document.ListDocuments(ctx, testWorkspaceID, usecase.ListDocumentsInput{DocumentType: types.DocumentTypeHIRA})
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(0)
		gt.Array(t, docs).Length(0)
	})

	t.Run("hazard suggestions are never listed", func(t *testing.T) {
		uc, _ := newTestUseCases(t, &fakeInvoker{})
		_, _, err := uc.Document.ListDocuments(ctx, testWorkspaceID, usecase.ListDocumentsInput{DocumentType: types.DocumentTypeHazardSuggestion})
		gt.Error(t, err).Is(usecase.ErrUnsupportedDocumentType)
	})

	t.Run("unknown workspace", func(t *testing.T) {
		uc, _ := newTestUseCases(t, &fakeInvoker{})
		_, _, err := uc.Document.ListDocuments(ctx, "nobody", usecase.ListDocumentsInput{})
		gt.Error(t, err).Is(model.ErrWorkspaceNotFound)

		_, err = uc.Document.GetDocument(ctx, "nobody", model.NewDocumentID())
		gt.Error(t, err).Is(model.ErrWorkspaceNotFound)
	})

	t.Run("documents stay in their workspace", func(t *testing.T) {
		uc, _ := newTestUseCases(t, &fakeInvoker{})
		saved := saveDocuments(t, uc, 1)[0]

		_, err := uc.Document.GetDocument(ctx, "quiet", saved.ID)
		gt.Error(t, err).Is(usecase.ErrDocumentNotFound)
	})
}
