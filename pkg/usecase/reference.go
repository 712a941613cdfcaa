package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
)

// MaxReferenceBytes bounds an uploaded reference
const MaxReferenceBytes = 1 << 20

// ReferenceUseCase manages uploaded reference material
type ReferenceUseCase struct {
	store      interfaces.ReferenceStore
	workspaces *model.WorkspaceRegistry
	now        func() time.Time
}

func NewReferenceUseCase(store interfaces.ReferenceStore, workspaces *model.WorkspaceRegistry, now func() time.Time) *ReferenceUseCase {
	if now == nil {
		now = time.Now
	}
	return &ReferenceUseCase{
		store:      store,
		workspaces: workspaces,
		now:        now,
	}
}

// AddReferenceInput is one uploaded text document
type AddReferenceInput struct {
	Name        string
	ContentType string
	Data        []byte
}

func referenceViolation(path, constraint string) error {
	return goerr.Wrap(pipeline.ErrSchemaViolation, "invalid reference upload",
		goerr.V(pipeline.ValuePath, path),
		goerr.V(pipeline.ValueConstraint, constraint),
	)
}

// AddReference stores text reference material that later requests can cite
// by ID
func (uc *ReferenceUseCase) AddReference(ctx context.Context, workspaceID string, input AddReferenceInput) (*model.Reference, error) {
	if uc.store == nil {
		return nil, goerr.Wrap(ErrFeatureNotConfigured, "reference store is not configured")
	}
	if _, err := uc.workspaces.Get(workspaceID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	switch {
	case name == "":
		return nil, referenceViolation("/name", "required")
	case len(input.Data) == 0:
		return nil, referenceViolation("/data", "required")
	case len(input.Data) > MaxReferenceBytes:
		return nil, referenceViolation("/data", "too large")
	case !utf8.Valid(input.Data):
		return nil, referenceViolation("/data", "must be UTF-8 text")
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	ref := &model.Reference{
		ID:          model.NewReferenceID(),
		WorkspaceID: workspaceID,
		Name:        name,
		ContentType: contentType,
		Text:        string(input.Data),
		CreatedAt:   uc.now().UTC(),
	}
	if err := uc.store.Put(ctx, ref); err != nil {
		return nil, goerr.Wrap(err, "failed to store reference", goerr.V(WorkspaceIDKey, workspaceID))
	}

	logging.From(ctx).Info("reference stored", "reference_id", ref.ID, "name", ref.Name, "size", len(input.Data))
	return ref, nil
}

// GetReference returns stored reference material
func (uc *ReferenceUseCase) GetReference(ctx context.Context, workspaceID string, id model.ReferenceID) (*model.Reference, error) {
	if uc.store == nil {
		return nil, goerr.Wrap(ErrFeatureNotConfigured, "reference store is not configured")
	}
	if _, err := uc.workspaces.Get(workspaceID); err != nil {
		return nil, err
	}

	ref, err := uc.store.Get(ctx, workspaceID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrReferenceNotFound, "reference not found",
				goerr.V(WorkspaceIDKey, workspaceID), goerr.V(ReferenceIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get reference",
			goerr.V(WorkspaceIDKey, workspaceID), goerr.V(ReferenceIDKey, id))
	}
	return ref, nil
}
