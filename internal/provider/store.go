// internal/provider/store.go
// Store-backed implementations of the content and attachment providers.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/media"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/rawvalue"
	"github.com/SchemaPress/schemapress-vsd-go/internal/storage"
)

// presignTTL bounds the life of presigned attachment URLs emitted into
// documents. Pages cache structured data, so keep it generous.
const presignTTL = 24 * time.Hour

// StoreContent serves content items out of the storage layer.
type StoreContent struct {
	store storage.Store
}

// NewStoreContent builds a store-backed content provider.
func NewStoreContent(store storage.Store) *StoreContent {
	return &StoreContent{store: store}
}

// Item returns the stored item, mapping storage misses to ErrNotFound.
func (c *StoreContent) Item(ctx context.Context, id string) (*model.Item, error) {
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// Field looks up a named metadata field on an item.
func (c *StoreContent) Field(ctx context.Context, itemID, name string) (interface{}, bool) {
	item, err := c.store.GetItem(ctx, itemID)
	if err != nil || item.Fields == nil {
		return nil, false
	}
	v, exists := item.Fields[name]
	if !exists {
		return nil, false
	}
	return v, true
}

// HasFieldProvider reports whether the item carries a metadata field set.
func (c *StoreContent) HasFieldProvider(ctx context.Context, itemID string) bool {
	item, err := c.store.GetItem(ctx, itemID)
	return err == nil && item.Fields != nil
}

// StoreAttachments serves attachment metadata out of the storage layer,
// optionally completing it from the S3 file store: object-key URLs are
// presigned, and missing MIME/size metadata is read from the object itself.
type StoreAttachments struct {
	store storage.Store
	files *media.FileStore // Optional, nil when S3 is not configured
}

// NewStoreAttachments builds a store-backed attachment provider.
func NewStoreAttachments(store storage.Store, files *media.FileStore) *StoreAttachments {
	return &StoreAttachments{store: store, files: files}
}

// Attachment resolves attachment metadata by numeric identifier.
func (a *StoreAttachments) Attachment(ctx context.Context, id int64) (*model.Attachment, error) {
	att, err := a.store.GetAttachment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if a.files != nil && att.URL != "" && !rawvalue.IsURL(att.URL) {
		// Stored value is an S3 object key, not a routable URL
		key := att.URL
		signed, err := a.files.ObjectURL(ctx, key, presignTTL)
		if err != nil {
			return nil, ErrNotFound
		}
		att.URL = signed

		if att.MimeType == "" || att.Size == 0 {
			if mimeType, size, err := a.files.Head(ctx, key); err == nil {
				if att.MimeType == "" {
					att.MimeType = mimeType
				}
				if att.Size == 0 {
					att.Size = size
				}
			}
		}
	}

	return att, nil
}
