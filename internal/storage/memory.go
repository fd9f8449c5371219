// internal/storage/memory.go
// Package storage provides implementations of the Store interface
// for both in-memory and PostgreSQL storage backends.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
)

// Standard errors returned by the storage layer
var (
	ErrNotFound = errors.New("not found") // Returned when an entity is not found
	ErrConflict = errors.New("conflict")  // Returned when an entity already exists
)

// Store defines the persistence operations required by the VSD service:
// the mapping configuration, the content-type allowlist, per-item override
// sets, and the content/attachment fixtures served to the providers.
// The core reads configuration; writes happen only via the admin surface.
type Store interface {
	// Mapping configuration (ConfigStore)
	GetMappingConfig(ctx context.Context) (model.MappingConfig, error)      // Current mapping, empty when unset
	SetMappingConfig(ctx context.Context, cfg model.MappingConfig) error    // Replace the mapping
	GetTypeAllowlist(ctx context.Context) (model.TypeAllowlist, error)      // Configured allowlist, nil when unset
	SetTypeAllowlist(ctx context.Context, types model.TypeAllowlist) error  // Replace the allowlist

	// Per-item override sets
	GetOverrides(ctx context.Context, itemID string) (*model.OverrideSet, error) // Override set for one item
	PutOverrides(ctx context.Context, overrides model.OverrideSet) error         // Replace an item's override set

	// Content items
	GetItem(ctx context.Context, id string) (*model.Item, error) // Item by identifier
	PutItem(ctx context.Context, item model.Item) error          // Create or replace an item

	// Attachment metadata
	GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) // Attachment by numeric id
	PutAttachment(ctx context.Context, att model.Attachment) error          // Create or replace an attachment
}

// memory implements the Store interface using in-memory storage.
// It's intended for development and testing purposes.
type memory struct {
	mu          sync.RWMutex                  // Protects concurrent access to maps
	mapping     model.MappingConfig           // Persisted mapping configuration
	allowlist   model.TypeAllowlist           // Content-type allowlist, nil when unconfigured
	overrides   map[string]*model.OverrideSet // Map of item ID to override set
	items       map[string]*model.Item        // Map of item ID to content item
	attachments map[int64]*model.Attachment   // Map of attachment ID to metadata
}

// NewMemory creates a new in-memory storage implementation.
// Returns a Store interface that can be used for testing or development.
func NewMemory() Store {
	return &memory{
		overrides:   make(map[string]*model.OverrideSet),
		items:       make(map[string]*model.Item),
		attachments: make(map[int64]*model.Attachment),
	}
}

func (m *memory) GetMappingConfig(ctx context.Context) (model.MappingConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.mapping == nil {
		return model.MappingConfig{}, nil
	}
	// Copy so callers cannot mutate the stored config
	cfg := make(model.MappingConfig, len(m.mapping))
	for k, v := range m.mapping {
		cfg[k] = v
	}
	return cfg, nil
}

func (m *memory) SetMappingConfig(ctx context.Context, cfg model.MappingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make(model.MappingConfig, len(cfg))
	for k, v := range cfg {
		stored[k] = v
	}
	m.mapping = stored
	return nil
}

func (m *memory) GetTypeAllowlist(ctx context.Context) (model.TypeAllowlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.allowlist == nil {
		return nil, nil
	}
	return append(model.TypeAllowlist{}, m.allowlist...), nil
}

func (m *memory) SetTypeAllowlist(ctx context.Context, types model.TypeAllowlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allowlist = append(model.TypeAllowlist{}, types...)
	return nil
}

func (m *memory) GetOverrides(ctx context.Context, itemID string) (*model.OverrideSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	overrides, exists := m.overrides[itemID]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *overrides
	return &copied, nil
}

func (m *memory) PutOverrides(ctx context.Context, overrides model.OverrideSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Require the owning item to exist
	if _, exists := m.items[overrides.ItemID]; !exists {
		return ErrNotFound
	}

	copied := overrides
	m.overrides[overrides.ItemID] = &copied
	return nil
}

func (m *memory) GetItem(ctx context.Context, id string) (*model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memory) PutItem(ctx context.Context, item model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := item
	m.items[item.ID] = &copied
	return nil
}

func (m *memory) GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	att, exists := m.attachments[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *att
	return &copied, nil
}

func (m *memory) PutAttachment(ctx context.Context, att model.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := att
	m.attachments[att.ID] = &copied
	return nil
}
