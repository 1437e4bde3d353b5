package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/logging"
)

// GCSProvider implements Provider on top of Google Cloud Storage.
type GCSProvider struct {
	Client     *storage.Client
	BucketName string
}

// NewGCSProvider initializes a GCS client and verifies the bucket is
// reachable. Authentication is handled via Application Default Credentials.
func NewGCSProvider(ctx context.Context, bucketName string) (*GCSProvider, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	// Fail fast on startup when the bucket is missing or inaccessible.
	bkt := client.Bucket(bucketName)
	if _, err := bkt.Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logging.L.Warn("Failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("get GCS bucket %q attributes: %w", bucketName, err)
	}

	return &GCSProvider{Client: client, BucketName: bucketName}, nil
}

// Save uploads the blob to an object in the GCS bucket.
func (g *GCSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	wc := g.Client.Bucket(g.BucketName).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		// The write already failed; Close is called only to release resources.
		if closeErr := wc.Close(); closeErr != nil {
			logging.L.Warn("Failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return fmt.Errorf("write data to GCS object %s: %w", objectName, err)
	}

	// Close finalizes the upload and flushes any buffered data.
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close GCS writer for object %s: %w", objectName, err)
	}
	return nil
}
