package reference_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/service/reference"
)

func runReferenceStoreTest(t *testing.T, newStore func(t *testing.T) interfaces.ReferenceStore) {
	t.Helper()

	t.Run("Put then Get returns the same reference", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		wsID := fmt.Sprintf("ws-%d", time.Now().UnixNano())

		ref := &model.Reference{
			ID:          model.NewReferenceID(),
			WorkspaceID: wsID,
			Name:        "Working at height policy",
			ContentType: "text/plain; charset=utf-8",
			Text:        "All work above 2m requires a harness.\n足場の点検を毎日行うこと。",
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		}
		gt.NoError(t, store.Put(ctx, ref)).Required()

		got, err := store.Get(ctx, wsID, ref.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(ref.ID)
		gt.Value(t, got.WorkspaceID).Equal(wsID)
		gt.Value(t, got.Name).Equal(ref.Name)
		gt.Value(t, got.Text).Equal(ref.Text)
		gt.Bool(t, got.CreatedAt.Equal(ref.CreatedAt)).True()
	})

	t.Run("Get returns ErrNotFound for unknown ID", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "ws-none", model.NewReferenceID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("references are scoped to their workspace", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ref := &model.Reference{
			ID:          model.NewReferenceID(),
			WorkspaceID: fmt.Sprintf("ws-a-%d", time.Now().UnixNano()),
			Name:        "policy",
			ContentType: "text/plain",
			Text:        "text",
			CreatedAt:   time.Now().UTC(),
		}
		gt.NoError(t, store.Put(ctx, ref)).Required()

		_, err := store.Get(ctx, "ws-b", ref.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	runReferenceStoreTest(t, func(t *testing.T) interfaces.ReferenceStore {
		return reference.NewMemoryStore()
	})
}

func TestGCSStore(t *testing.T) {
	runReferenceStoreTest(t, func(t *testing.T) interfaces.ReferenceStore {
		bucket := os.Getenv("TEST_GCS_BUCKET")
		if bucket == "" {
			t.Skip("TEST_GCS_BUCKET not set")
		}

		store, err := reference.NewGCSStore(context.Background(), bucket, reference.WithPrefix("test/"))
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestNewGCSStoreRequiresBucket(t *testing.T) {
	_, err := reference.NewGCSStore(context.Background(), "")
	gt.Value(t, err).NotNil()
}
