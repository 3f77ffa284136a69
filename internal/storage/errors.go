package storage

import (
	"errors"

	"github.com/bassista/go_relboard/internal/remote"
)

var (
	// ErrRemoteUnavailable reports a network, auth or HTTP failure talking to the store.
	ErrRemoteUnavailable = remote.ErrUnavailable
	// ErrDocumentMissing reports a named file absent from the container, or unparsable.
	ErrDocumentMissing = errors.New("document missing")
	// ErrCacheUnavailable reports a cache entry that is expected but unusable.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrPersistenceFailed reports a write that reached the store while the
	// local view could not be brought in line with it.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrSerializerClosed is returned for writes submitted after shutdown.
	ErrSerializerClosed = errors.New("write serializer closed")
)
