package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

type documentRepository struct {
	mu      sync.RWMutex
	buckets map[string]map[model.DocumentID]*model.GeneratedDocument
}

func newDocumentRepository() *documentRepository {
	return &documentRepository{
		buckets: make(map[string]map[model.DocumentID]*model.GeneratedDocument),
	}
}

func copyDocument(d *model.GeneratedDocument) *model.GeneratedDocument {
	copied := *d
	return &copied
}

func (r *documentRepository) Create(ctx context.Context, workspaceID string, doc *model.GeneratedDocument) (*model.GeneratedDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyDocument(doc)
	if created.ID == "" {
		created.ID = model.NewDocumentID()
	}
	created.WorkspaceID = workspaceID
	created.CreatedAt = time.Now().UTC()

	bucket, ok := r.buckets[workspaceID]
	if !ok {
		bucket = make(map[model.DocumentID]*model.GeneratedDocument)
		r.buckets[workspaceID] = bucket
	}
	if _, exists := bucket[created.ID]; exists {
		return nil, goerr.Wrap(interfaces.ErrAlreadyExists, "document already exists", goerr.V("id", created.ID))
	}
	bucket[created.ID] = created

	return copyDocument(created), nil
}

func (r *documentRepository) Get(ctx context.Context, workspaceID string, id model.DocumentID) (*model.GeneratedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.buckets[workspaceID][id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
	}
	return copyDocument(doc), nil
}

func (r *documentRepository) List(ctx context.Context, workspaceID string, opts ...interfaces.ListDocumentOption) ([]*model.GeneratedDocument, int, error) {
	cfg := interfaces.BuildListDocumentConfig(opts...)

	r.mu.RLock()
	all := make([]*model.GeneratedDocument, 0, len(r.buckets[workspaceID]))
	for _, doc := range r.buckets[workspaceID] {
		if t := cfg.DocumentType(); t != nil && doc.DocumentType != *t {
			continue
		}
		all = append(all, copyDocument(doc))
	}
	r.mu.RUnlock()

	// Newest first; IDs are time-ordered so they break CreatedAt ties
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if cfg.Offset() >= total {
		return []*model.GeneratedDocument{}, total, nil
	}

	end := cfg.Offset() + cfg.Limit()
	if end > total {
		end = total
	}
	return all[cfg.Offset():end], total, nil
}

func (r *documentRepository) Delete(ctx context.Context, workspaceID string, id model.DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buckets[workspaceID][id]; !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "document not found", goerr.V("id", id))
	}
	delete(r.buckets[workspaceID], id)
	return nil
}
