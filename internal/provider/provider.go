// internal/provider/provider.go
// Package provider defines the external collaborator contracts the core
// pipeline reads from: the content provider (per-item metadata and named
// field lookup) and the attachment provider (file metadata by numeric id).
package provider

import (
	"context"
	"errors"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
)

// ErrNotFound is returned when a provider cannot resolve an item or
// attachment. Callers treat it as a miss, never a failure.
var ErrNotFound = errors.New("not found")

// Content exposes the embedding host's view of a content item: title,
// stripped excerpt, publish time, permalink, content type, primary
// designated image, and arbitrary nested metadata lookup by field name.
type Content interface {
	// Item returns the provider-level view of one item.
	Item(ctx context.Context, id string) (*model.Item, error)

	// Field looks up a named metadata field on an item. The result feeds the
	// first segment of dot-path resolution. A miss is (nil, false).
	Field(ctx context.Context, itemID, name string) (interface{}, bool)

	// HasFieldProvider reports whether a compatible field provider backs the
	// item, which enables the naming-convention mapping fallback.
	HasFieldProvider(ctx context.Context, itemID string) bool
}
