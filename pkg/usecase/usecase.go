package usecase

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
)

type UseCases struct {
	repo       interfaces.Repository
	workspaces *model.WorkspaceRegistry
	references interfaces.ReferenceStore
	articles   interfaces.ArticleFetcher
	notifier   interfaces.Notifier
	stageHooks []pipeline.StageHook
	now        func() time.Time

	Generation *GenerationUseCase
	Document   *DocumentUseCase
	Reference  *ReferenceUseCase
}

type Option func(*UseCases)

func WithWorkspaceRegistry(registry *model.WorkspaceRegistry) Option {
	return func(uc *UseCases) {
		uc.workspaces = registry
	}
}

func WithReferenceStore(store interfaces.ReferenceStore) Option {
	return func(uc *UseCases) {
		uc.references = store
	}
}

func WithArticleFetcher(fetcher interfaces.ArticleFetcher) Option {
	return func(uc *UseCases) {
		uc.articles = fetcher
	}
}

func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithStageHook observes stage transitions of every flow run
func WithStageHook(hook pipeline.StageHook) Option {
	return func(uc *UseCases) {
		uc.stageHooks = append(uc.stageHooks, hook)
	}
}

// WithClock replaces time.Now as the source of generation dates
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

// New wires the use cases. invoker is the completion service boundary; the
// document flows, schemas and prompts are built here and shared read-only by
// every request.
func New(repo interfaces.Repository, invoker pipeline.Invoker, opts ...Option) (*UseCases, error) {
	uc := &UseCases{
		repo:       repo,
		workspaces: model.NewWorkspaceRegistry(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	schemas, err := pipeline.NewSchemaRegistry()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load schemas")
	}

	var pipelineOpts []pipeline.Option
	for _, hook := range uc.stageHooks {
		pipelineOpts = append(pipelineOpts, pipeline.WithStageHook(hook))
	}
	p := pipeline.New(schemas, invoker, pipelineOpts...)

	flows, err := newFlowSet(schemas, &flowDeps{
		references: uc.references,
		articles:   uc.articles,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build flows")
	}

	advice, err := parsePrompt("advice")
	if err != nil {
		return nil, err
	}

	uc.Document = NewDocumentUseCase(repo, uc.workspaces)
	uc.Reference = NewReferenceUseCase(uc.references, uc.workspaces, uc.now)
	uc.Generation = &GenerationUseCase{
		pipeline:   p,
		flows:      flows,
		advice:     advice,
		workspaces: uc.workspaces,
		documents:  uc.Document,
		notifier:   uc.notifier,
		now:        uc.now,
	}

	return uc, nil
}

// Workspaces returns the workspace registry
func (uc *UseCases) Workspaces() *model.WorkspaceRegistry {
	return uc.workspaces
}
