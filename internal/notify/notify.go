// Package notify publishes file-ingested events so downstream consumers
// (dashboards, index refreshers) can react to new price batches.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/batch"
)

// PubSubNotifier publishes one message per successfully ingested file to a
// Google Cloud Pub/Sub topic. It implements batch.Notifier.
type PubSubNotifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubNotifier creates a Pub/Sub client and verifies the topic exists.
// It authenticates using Application Default Credentials.
func NewPubSubNotifier(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("Failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("Failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubNotifier{client: client, topic: topic, logger: logger}, nil
}

// FileIngested marshals the file result to JSON and publishes it, waiting for
// the server acknowledgement so ingest failures surface to the caller.
func (n *PubSubNotifier) FileIngested(ctx context.Context, res batch.FileResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal file result: %w", err)
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"file": res.FileName},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish file result: %w", err)
	}
	n.logger.Debug("Published ingest event",
		zap.String("file", res.FileName),
		zap.String("message_id", id),
	)
	return nil
}

// Close stops the topic's publisher and closes the client connection.
func (n *PubSubNotifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// NoOpNotifier discards file-ingested events.
type NoOpNotifier struct{}

// FileIngested for NoOpNotifier does nothing and always returns nil.
func (NoOpNotifier) FileIngested(_ context.Context, _ batch.FileResult) error {
	return nil
}
