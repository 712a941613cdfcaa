package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/service/reference"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for the reference material store
type Storage struct {
	backend string
	bucket  string
	prefix  string
}

// Flags returns CLI flags for reference storage configuration
func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Category:    "Storage",
			Usage:       "Reference storage backend (gcs, memory or none)",
			Value:       "none",
			Sources:     cli.EnvVars("SAFETYDOCS_STORAGE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Category:    "Storage",
			Usage:       "Cloud Storage bucket for reference material",
			Sources:     cli.EnvVars("SAFETYDOCS_GCS_BUCKET"),
			Destination: &s.bucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Category:    "Storage",
			Usage:       "Object key prefix in the bucket",
			Sources:     cli.EnvVars("SAFETYDOCS_GCS_PREFIX"),
			Destination: &s.prefix,
		},
	}
}

// Configure returns the reference store, or nil when reference upload is
// disabled. The returned closer is never nil.
func (s *Storage) Configure(ctx context.Context) (interfaces.ReferenceStore, func(), error) {
	noop := func() {}

	switch s.backend {
	case "none", "":
		logging.Default().Info("Reference storage disabled")
		return nil, noop, nil

	case "memory":
		logging.Default().Info("Using in-memory reference storage (development mode)")
		return reference.NewMemoryStore(), noop, nil

	case "gcs":
		if s.bucket == "" {
			return nil, noop, goerr.Wrap(ErrInvalidConfig, "gcs-bucket is required when using gcs backend")
		}
		store, err := reference.NewGCSStore(ctx, s.bucket, reference.WithPrefix(s.prefix))
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to initialize reference storage")
		}
		logging.Default().Info("Using Cloud Storage for references", "bucket", s.bucket, "prefix", s.prefix)
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Default().Error("failed to close storage client", "error", err.Error())
			}
		}, nil

	default:
		return nil, noop, goerr.Wrap(ErrInvalidConfig, "invalid storage backend", goerr.V(BackendKey, s.backend))
	}
}
