package reference

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
)

type memoryKey struct {
	workspaceID string
	id          model.ReferenceID
}

// MemoryStore keeps reference material in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	refs map[memoryKey]*model.Reference
}

var _ interfaces.ReferenceStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refs: make(map[memoryKey]*model.Reference),
	}
}

func (s *MemoryStore) Put(ctx context.Context, ref *model.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *ref
	s.refs[memoryKey{workspaceID: ref.WorkspaceID, id: ref.ID}] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, workspaceID string, id model.ReferenceID) (*model.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[memoryKey{workspaceID: workspaceID, id: id}]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "reference not found", goerr.V("id", id))
	}
	copied := *ref
	return &copied, nil
}
