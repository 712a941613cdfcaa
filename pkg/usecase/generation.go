package usecase

import (
	"context"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/utils/async"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
)

// MaxAdviceQueryChars bounds the free-text advice question
const MaxAdviceQueryChars = 4000

// GenerationUseCase runs the document generation flows
type GenerationUseCase struct {
	pipeline   *pipeline.Pipeline
	flows      *flowSet
	advice     *template.Template
	workspaces *model.WorkspaceRegistry
	documents  *DocumentUseCase
	notifier   interfaces.Notifier
	now        func() time.Time
}

// GenerateOptions controls what happens after a document is generated
type GenerateOptions struct {
	// Save stores the result in the workspace's document library
	Save bool
}

// Generated is the outcome of Generate. Document is set only when the
// result was saved.
type Generated struct {
	Result   *model.GenerationResult
	Document *model.GeneratedDocument
}

func (uc *GenerationUseCase) env(entry *model.WorkspaceEntry) pipeline.Env {
	return pipeline.Env{
		GeneratedAt: uc.now().UTC(),
		Language:    entry.GenerationLanguage(),
	}
}

func (uc *GenerationUseCase) documentFlow(docType types.DocumentType) (documentRunner, error) {
	runner, ok := uc.flows.documents[docType]
	if !ok {
		return nil, goerr.Wrap(ErrUnsupportedDocumentType, "no document flow for type",
			goerr.V(DocumentTypeKey, docType))
	}
	return runner, nil
}

func (uc *GenerationUseCase) workspace(ctx context.Context, workspaceID string) (context.Context, *model.WorkspaceEntry, error) {
	entry, err := uc.workspaces.Get(workspaceID)
	if err != nil {
		return ctx, nil, err
	}
	ctx = withWorkspace(ctx, entry)
	ctx = logging.With(ctx, logging.From(ctx).With(WorkspaceIDKey, workspaceID))
	return ctx, entry, nil
}

// Generate runs the flow of docType over raw request JSON. Nothing is saved
// unless the whole run succeeds.
func (uc *GenerationUseCase) Generate(ctx context.Context, workspaceID string, docType types.DocumentType, raw []byte, opts GenerateOptions) (*Generated, error) {
	ctx, entry, err := uc.workspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	runner, err := uc.documentFlow(docType)
	if err != nil {
		return nil, err
	}

	out, err := runner.Run(ctx, uc.pipeline, uc.env(entry), raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate document",
			goerr.V(WorkspaceIDKey, workspaceID),
			goerr.V(DocumentTypeKey, docType),
		)
	}

	logging.From(ctx).Info("document generated",
		"document_type", docType,
		"field", out.Result.Field,
		"length", len(out.Result.Document),
	)

	generated := &Generated{Result: out.Result}
	if !opts.Save {
		return generated, nil
	}

	doc, err := uc.documents.save(ctx, workspaceID, model.NewGeneratedDocument(workspaceID, out.Header, out.Result))
	if err != nil {
		return nil, err
	}
	generated.Document = doc

	if uc.notifier != nil && entry.NotifyChannel != "" {
		channel := entry.NotifyChannel
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.DocumentSaved(ctx, channel, doc)
		})
	}

	return generated, nil
}

// Render returns the prompt a Generate call would send, without calling the
// completion service
func (uc *GenerationUseCase) Render(ctx context.Context, workspaceID string, docType types.DocumentType, raw []byte) (string, error) {
	ctx, entry, err := uc.workspace(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	if docType == types.DocumentTypeHazardSuggestion {
		return uc.flows.hazards.Render(ctx, uc.pipeline, uc.env(entry), raw)
	}

	runner, err := uc.documentFlow(docType)
	if err != nil {
		return "", err
	}
	return runner.Render(ctx, uc.pipeline, uc.env(entry), raw)
}

// Check validates raw against the input schema of docType
func (uc *GenerationUseCase) Check(docType types.DocumentType, raw []byte) error {
	if docType == types.DocumentTypeHazardSuggestion {
		return uc.flows.hazards.Check(uc.pipeline, raw)
	}

	runner, err := uc.documentFlow(docType)
	if err != nil {
		return err
	}
	return runner.Check(uc.pipeline, raw)
}

// SuggestHazards proposes unrated hazard stubs for a task title
func (uc *GenerationUseCase) SuggestHazards(ctx context.Context, workspaceID string, raw []byte) (*model.HazardSuggestionResult, error) {
	ctx, entry, err := uc.workspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	result, err := uc.flows.hazards.Run(ctx, uc.pipeline, uc.env(entry), raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to suggest hazards", goerr.V(WorkspaceIDKey, workspaceID))
	}

	logging.From(ctx).Info("hazards suggested", "count", len(result.Hazards))
	return result, nil
}

type adviceData struct {
	Query        string
	Language     string
	Organization string
}

// Advice streams a free-text answer. The returned channel is closed when the
// answer is complete or the stream fails.
func (uc *GenerationUseCase) Advice(ctx context.Context, workspaceID, query string) (<-chan pipeline.Fragment, error) {
	ctx, entry, err := uc.workspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "query is empty",
			goerr.V(pipeline.ValuePath, "/query"),
			goerr.V(pipeline.ValueConstraint, "required"),
		)
	}
	if utf8.RuneCountInString(query) > MaxAdviceQueryChars {
		return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "query is too long",
			goerr.V(pipeline.ValuePath, "/query"),
			goerr.V(pipeline.ValueConstraint, "maxLength"),
		)
	}

	prompt, err := pipeline.Bind(uc.advice, adviceData{
		Query:        query,
		Language:     entry.GenerationLanguage(),
		Organization: entry.Organization,
	})
	if err != nil {
		return nil, err
	}

	stream, err := uc.pipeline.Invoker().Stream(ctx, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start advice stream", goerr.V(WorkspaceIDKey, workspaceID))
	}
	return stream, nil
}

// DocumentTypes lists the types Generate accepts
func (uc *GenerationUseCase) DocumentTypes() []types.DocumentType {
	var result []types.DocumentType
	for _, t := range types.AllDocumentTypes() {
		if _, ok := uc.flows.documents[t]; ok {
			result = append(result, t)
		}
	}
	return result
}
