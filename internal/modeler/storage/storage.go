package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrInvalidKey         = errors.New("invalid object key")
	ErrPresignUnsupported = errors.New("presigned urls are not supported by this storage")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is the exact number of bytes, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage keeps the generated solid artifacts (SCAD scripts, STL meshes)
// under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL for the object.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ArtifactKey is the key of the artifact a backend produced for a model.
func ArtifactKey(modelID, backend, ext string) string {
	return "models/" + modelID + "/" + backend + "." + ext
}
