// internal/event/nats.go
// Package event provides NATS JetStream implementation for event publishing.
// It streams document-assembly and configuration events so downstream caches
// and audit consumers can react to changes.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher interface defines the event publishing operations required by the VSD service.
// It provides methods for publishing document and configuration events to the event stream.
type Publisher interface {
	// Document events
	PublishDocumentAssembled(ctx context.Context, itemID string, doc model.Document) error

	// Configuration events
	PublishConfigUpdated(ctx context.Context, kind string) error

	// Close closes the publisher connection
	Close() error
}

// noop is a no-op implementation of Publisher for when NATS is not configured.
// It implements all Publisher methods but does nothing, allowing the service
// to function without event streaming when NATS is not available.
type noop struct{}

// Close implements Publisher
// It does nothing and always returns nil.
func (n *noop) Close() error { return nil }

// PublishDocumentAssembled implements Publisher
// It does nothing and always returns nil.
func (n *noop) PublishDocumentAssembled(ctx context.Context, itemID string, doc model.Document) error {
	return nil
}

// PublishConfigUpdated implements Publisher
// It does nothing and always returns nil.
func (n *noop) PublishConfigUpdated(ctx context.Context, kind string) error {
	return nil
}

// natsPub is the NATS JetStream implementation of Publisher.
// It connects to a NATS server and publishes events to JetStream streams.
type natsPub struct {
	nc *nats.Conn            // NATS connection
	js nats.JetStreamContext // JetStream context for stream operations

	// Deduplication fields
	docDedup    map[string]time.Time // Map of item IDs to last publish time
	configDedup map[string]time.Time // Map of config kinds to last publish time
	mutex       sync.RWMutex         // Mutex for thread-safe access to dedup maps
}

// NewPublisherFromEnv creates a new publisher based on environment configuration.
// It reads the VSD_NATS_URL environment variable to determine if NATS should be used.
// If NATS is not configured or connection fails, it returns a no-op publisher.
// Returns:
//   - Publisher: Either a NATS publisher or a no-op publisher
func NewPublisherFromEnv() Publisher {
	// Check if NATS is configured
	url := os.Getenv("VSD_NATS_URL")
	if url == "" {
		return &noop{}
	}

	// Connect to NATS server
	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	// Create JetStream context for stream operations
	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	// Initialize required streams
	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{
		nc:          nc,
		js:          js,
		docDedup:    make(map[string]time.Time),
		configDedup: make(map[string]time.Time),
	}
}

// initStreams initializes the required NATS streams.
// It creates the VSD_DOCUMENTS and VSD_CONFIG streams with appropriate
// configurations for event streaming and audit trails.
func initStreams(js nats.JetStreamContext) error {
	// Create VSD_DOCUMENTS stream for document-assembly events
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "VSD_DOCUMENTS",             // Stream name
		Subjects:  []string{"vsd.documents.*"}, // Subjects pattern for document events
		Retention: nats.LimitsPolicy,           // Retention policy
		MaxAge:    24 * time.Hour,              // Keep events for 24 hours
		Discard:   nats.DiscardOld,             // Discard old messages when limits reached
		Storage:   nats.FileStorage,            // Use file storage for persistence
	})
	if err != nil {
		return fmt.Errorf("failed to create VSD_DOCUMENTS stream: %w", err)
	}

	// Create VSD_CONFIG stream for configuration-change events
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      "VSD_CONFIG",             // Stream name
		Subjects:  []string{"vsd.config.*"}, // Subjects pattern for config events
		Retention: nats.LimitsPolicy,        // Retention policy
		MaxAge:    24 * time.Hour,           // Keep events for 24 hours
		Discard:   nats.DiscardOld,          // Discard old messages when limits reached
		Storage:   nats.FileStorage,         // Use file storage for persistence
	})
	if err != nil {
		return fmt.Errorf("failed to create VSD_CONFIG stream: %w", err)
	}

	return nil
}

// EventEnvelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope for consistency.
type EventEnvelope struct {
	Type          string      `json:"type"`          // Event type identifier
	Version       string      `json:"version"`       // Event schema version
	OccurredAt    time.Time   `json:"occurredAt"`    // When the event occurred
	CorrelationID string      `json:"correlationId"` // Correlation ID for tracing
	Payload       interface{} `json:"payload"`       // Event-specific data
}

// Close closes the NATS connection.
// It gracefully closes the connection to the NATS server.
func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// shouldDedup checks if an event should be deduplicated based on the 2-minute window.
// It takes a map key (item ID or config kind) and the dedup map, and returns true
// if the event should be deduplicated (i.e., it was published within the last 2 minutes).
func (p *natsPub) shouldDedup(key string, dedupMap map[string]time.Time) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if lastTime, exists := dedupMap[key]; exists {
		// Check if the last event was within the 2-minute dedup window
		return time.Since(lastTime) < 2*time.Minute
	}

	return false
}

// updateDedup updates the deduplication map with the current time for a given key.
// This should be called after successfully publishing an event.
func (p *natsPub) updateDedup(key string, dedupMap map[string]time.Time) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Clean up old entries to prevent memory leaks
	cutoff := time.Now().Add(-5 * time.Minute) // Keep entries for 5 minutes
	for k, t := range dedupMap {
		if t.Before(cutoff) {
			delete(dedupMap, k)
		}
	}

	// Update the current key with the current time
	dedupMap[key] = time.Now()
}

// PublishDocumentAssembled publishes a document assembled event.
// It wraps the document in an event envelope and publishes it to the
// VSD_DOCUMENTS stream.
// Parameters:
//   - ctx: Context for the operation
//   - itemID: The item the document was assembled for
//   - doc: The assembled document
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishDocumentAssembled(ctx context.Context, itemID string, doc model.Document) error {
	// Check if this event should be deduplicated
	if p.shouldDedup(itemID, p.docDedup) {
		// Event was published recently, skip it
		return nil
	}

	subject := "vsd.documents.assembled"

	// Create the event envelope with metadata
	envelope := EventEnvelope{
		Type:          "vsd.documents.assembled", // Event type
		Version:       "1.0.0",                   // Event schema version
		OccurredAt:    time.Now().UTC(),          // Event timestamp
		CorrelationID: uuid.New().String(),       // Unique correlation ID
		Payload: map[string]interface{}{
			"itemId":   itemID,
			"document": doc,
		},
	}

	// Marshal the envelope to JSON
	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	// Publish the event to the stream
	_, err = p.js.Publish(subject, b)
	if err != nil {
		return err
	}

	// Update deduplication map on successful publish
	p.updateDedup(itemID, p.docDedup)

	return nil
}

// PublishConfigUpdated publishes a configuration updated event.
// Parameters:
//   - ctx: Context for the operation
//   - kind: The configuration kind that changed ("mapping" or "types")
// Returns:
//   - error: Any error that occurred during publishing
func (p *natsPub) PublishConfigUpdated(ctx context.Context, kind string) error {
	// Check if this event should be deduplicated
	if p.shouldDedup(kind, p.configDedup) {
		// Event was published recently, skip it
		return nil
	}

	subject := fmt.Sprintf("vsd.config.%s.updated", kind)

	// Create the event envelope with metadata
	envelope := EventEnvelope{
		Type:          subject,             // Event type
		Version:       "1.0.0",             // Event schema version
		OccurredAt:    time.Now().UTC(),    // Event timestamp
		CorrelationID: uuid.New().String(), // Unique correlation ID
		Payload: map[string]interface{}{
			"kind": kind,
		},
	}

	// Marshal the envelope to JSON
	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	// Publish the event to the stream
	_, err = p.js.Publish(subject, b)
	if err != nil {
		return err
	}

	// Update deduplication map on successful publish
	p.updateDedup(kind, p.configDedup)

	return nil
}
