package storage

import (
	"context"

	"github.com/coopvalles/asamblea-api/pkg/config"
)

// ObjectStore persists announcement attachments. Lifecycle management of
// orphaned objects belongs to the storage backend, not this API.
type ObjectStore interface {
	// Put stores the object and returns a URL clients can fetch it from.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Exists reports whether the named object is present.
	Exists(ctx context.Context, name string) (bool, error)
	// URL returns the public URL for an already-stored object.
	URL(name string) string
}

// New selects the backend from configuration.
func New(cfg config.StorageConfig) (ObjectStore, error) {
	if cfg.Backend == "minio" {
		return NewMinioStore(cfg)
	}
	return NewLocalStore(cfg.LocalDir)
}
