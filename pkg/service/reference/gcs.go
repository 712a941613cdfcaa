package reference

import (
	"context"
	"errors"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
)

const (
	metaName      = "name"
	metaCreatedAt = "created-at"
)

// GCSStore keeps reference material as objects in a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ReferenceStore = &GCSStore{}

// GCSOption configures GCSStore
type GCSOption func(*GCSStore)

// WithPrefix sets the object key prefix, e.g. "safetydocs/"
func WithPrefix(prefix string) GCSOption {
	return func(s *GCSStore) {
		s.prefix = prefix
	}
}

// NewGCSStore creates a store using application default credentials
func NewGCSStore(ctx context.Context, bucket string, opts ...GCSOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	s := &GCSStore{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *GCSStore) objectPath(workspaceID string, id model.ReferenceID) string {
	return s.prefix + workspaceID + "/references/" + string(id)
}

func (s *GCSStore) Put(ctx context.Context, ref *model.Reference) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectPath(ref.WorkspaceID, ref.ID))

	w := obj.NewWriter(ctx)
	w.ContentType = ref.ContentType
	w.Metadata = map[string]string{
		metaName:      ref.Name,
		metaCreatedAt: ref.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if _, err := io.WriteString(w, ref.Text); err != nil {
		safe.Close(ctx, w)
		return goerr.Wrap(err, "failed to write reference", goerr.V("id", ref.ID))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to upload reference", goerr.V("id", ref.ID))
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, workspaceID string, id model.ReferenceID) (*model.Reference, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectPath(workspaceID, id))

	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "reference not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get reference attributes", goerr.V("id", id))
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open reference", goerr.V("id", id))
	}
	defer safe.Close(ctx, reader)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read reference", goerr.V("id", id))
	}

	createdAt, err := time.Parse(time.RFC3339Nano, attrs.Metadata[metaCreatedAt])
	if err != nil {
		createdAt = attrs.Created
	}

	return &model.Reference{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        attrs.Metadata[metaName],
		ContentType: attrs.ContentType,
		Text:        string(data),
		CreatedAt:   createdAt,
	}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
