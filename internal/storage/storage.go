package storage

import "context"

// Uploader is the object-storage boundary. Implementations return the
// public URL of the stored artifact; an error means "not stored" and the
// caller decides whether that is fatal.
type Uploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}
