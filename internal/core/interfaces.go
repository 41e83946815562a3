package core

import (
	"context"
	"time"

	"github.com/titulapp/thesis-api/internal/domain/model"
)

// This file contains the ports consumed by the export pipeline (hexagonal
// architecture). Service implementations depend on these interfaces, not on
// concrete adapters.

// RecordLister defines the interface for enumerating export-eligible theses.
type RecordLister interface {
	// ListWithStorageHandle returns every thesis with a non-empty storage
	// handle, in stable listing order.
	ListWithStorageHandle(ctx context.Context) ([]model.ThesisRecord, error)
}

// FileGateway defines the interface to the remote storage provider.
type FileGateway interface {
	// ResolveDownloadLink exchanges a stored-file handle for a time-limited
	// download URL. Returns ErrLinkNotAvailable when the provider has no link
	// for the handle.
	ResolveDownloadLink(ctx context.Context, handle string) (string, error)
	// FetchBytes downloads the raw file contents from a resolved URL,
	// following redirects.
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	// Upload stores raw bytes under the given name and returns the provider
	// handle referencing them.
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// LinkCache defines the optional cache for resolved download links. Resolved
// URLs are time-limited, so entries must expire before the provider link does.
type LinkCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
