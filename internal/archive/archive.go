// Package archive defines the blob storage boundary used to keep a copy of
// each normalized batch. The abstraction keeps the pipeline independent of a
// specific backend (Google Cloud Storage or the local filesystem).
package archive

import "context"

// Provider saves a named blob.
type Provider interface {
	// Save uploads data to a specified object path/key in the blob store.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider is a storage provider that performs no operations. It is
// useful for dry runs where batches are uploaded but not archived.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
