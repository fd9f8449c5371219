// internal/storage/postgres.go
// Package storage provides PostgreSQL implementation of the Store interface.
// This implementation is intended for production use with persistent data storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config rows are keyed blobs; these are the two keys the core reads.
const (
	configKeyMapping   = "mapping"
	configKeyAllowlist = "type_allowlist"
)

// postgres provides persistent storage for configuration, items,
// overrides, and attachment metadata.
type postgres struct {
	db *pgxpool.Pool // Connection pool to PostgreSQL database
}

// NewPostgres creates a new PostgreSQL storage implementation.
// It establishes a connection pool to the database and initializes the schema.
// Parameters:
//   - dsn: Database connection string in PostgreSQL format
// Returns:
//   - Store: Implementation of the storage interface
//   - error: Any error that occurred during initialization
func NewPostgres(dsn string) (Store, error) {
	// Parse the database connection string
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database DSN: %w", err)
	}

	// Configure connection pool settings
	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute

	// Establish connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize database schema
	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &postgres{db: pool}, nil
}

// initSchema initializes the database schema.
// It creates all required tables and indexes if they don't already exist.
// This function is called automatically when creating a new PostgreSQL store.
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
		-- Keyed configuration blobs: mapping config and type allowlist
		CREATE TABLE IF NOT EXISTS vsd_config (
		    key TEXT PRIMARY KEY,                    -- Configuration key
		    value JSONB NOT NULL,                    -- Configuration payload
		    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()  -- Last write time
		);

		-- Content items served to the content provider
		CREATE TABLE IF NOT EXISTS items (
		    id TEXT PRIMARY KEY,                     -- Item identifier
		    title TEXT NOT NULL,                     -- Item's own title
		    excerpt TEXT NOT NULL DEFAULT '',        -- Stripped excerpt
		    published_at TIMESTAMP WITH TIME ZONE NOT NULL,  -- Publish time
		    permalink TEXT NOT NULL,                 -- Canonical page URL
		    content_type TEXT NOT NULL,              -- Content-type identifier
		    featured_image_id BIGINT NOT NULL DEFAULT 0,  -- Primary designated image
		    fields JSONB NOT NULL DEFAULT '{}'       -- Arbitrary nested metadata
		);

		CREATE INDEX IF NOT EXISTS idx_items_content_type ON items(content_type);

		-- Per-item override sets, highest mapping precedence
		CREATE TABLE IF NOT EXISTS item_overrides (
		    item_id TEXT PRIMARY KEY REFERENCES items(id),  -- Owning item
		    enabled BOOLEAN NOT NULL DEFAULT FALSE,  -- Explicit per-item opt-in flag
		    override_values JSONB NOT NULL DEFAULT '{}'  -- Per-key raw values
		);

		-- Attachment metadata served to the attachment provider
		CREATE TABLE IF NOT EXISTS attachments (
		    id BIGINT PRIMARY KEY,                   -- Numeric attachment identifier
		    url TEXT NOT NULL,                       -- Resolvable file URL
		    mime_type TEXT NOT NULL DEFAULT '',      -- MIME type
		    size BIGINT NOT NULL DEFAULT 0,          -- Size in bytes
		    width INTEGER NOT NULL DEFAULT 0,        -- Pixel width
		    height INTEGER NOT NULL DEFAULT 0        -- Pixel height
		);
	`

	// Execute the schema creation SQL
	_, err := db.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool
func (p *postgres) Close() {
	p.db.Close()
}

// getConfig reads one keyed configuration blob into out.
func (p *postgres) getConfig(ctx context.Context, key string, out interface{}) error {
	query := `SELECT value FROM vsd_config WHERE key = $1`
	var raw []byte

	err := p.db.QueryRow(ctx, query, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get config %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode config %s: %w", key, err)
	}
	return nil
}

// setConfig upserts one keyed configuration blob.
func (p *postgres) setConfig(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal config %s: %w", key, err)
	}

	query := `INSERT INTO vsd_config (key, value, updated_at) VALUES ($1, $2, NOW())
	          ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`
	if _, err := p.db.Exec(ctx, query, key, raw); err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, err)
	}
	return nil
}

// GetMappingConfig returns the persisted mapping configuration.
// An unset mapping reads as an empty configuration, not an error.
func (p *postgres) GetMappingConfig(ctx context.Context) (model.MappingConfig, error) {
	var cfg model.MappingConfig
	if err := p.getConfig(ctx, configKeyMapping, &cfg); err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.MappingConfig{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// SetMappingConfig replaces the persisted mapping configuration.
func (p *postgres) SetMappingConfig(ctx context.Context, cfg model.MappingConfig) error {
	return p.setConfig(ctx, configKeyMapping, cfg)
}

// GetTypeAllowlist returns the configured content-type allowlist,
// or nil when none has been configured.
func (p *postgres) GetTypeAllowlist(ctx context.Context) (model.TypeAllowlist, error) {
	var types model.TypeAllowlist
	if err := p.getConfig(ctx, configKeyAllowlist, &types); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return types, nil
}

// SetTypeAllowlist replaces the content-type allowlist.
func (p *postgres) SetTypeAllowlist(ctx context.Context, types model.TypeAllowlist) error {
	return p.setConfig(ctx, configKeyAllowlist, types)
}

// GetOverrides retrieves the override set for one item.
func (p *postgres) GetOverrides(ctx context.Context, itemID string) (*model.OverrideSet, error) {
	query := `SELECT item_id, enabled, override_values FROM item_overrides WHERE item_id = $1`
	var overrides model.OverrideSet
	var raw []byte

	err := p.db.QueryRow(ctx, query, itemID).Scan(&overrides.ItemID, &overrides.Enabled, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get overrides: %w", err)
	}
	if err := json.Unmarshal(raw, &overrides.Values); err != nil {
		return nil, fmt.Errorf("failed to decode overrides: %w", err)
	}

	return &overrides, nil
}

// PutOverrides replaces an item's override set.
func (p *postgres) PutOverrides(ctx context.Context, overrides model.OverrideSet) error {
	raw, err := json.Marshal(overrides.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}

	query := `INSERT INTO item_overrides (item_id, enabled, override_values) VALUES ($1, $2, $3)
	          ON CONFLICT (item_id) DO UPDATE SET enabled = $2, override_values = $3`
	if _, err := p.db.Exec(ctx, query, overrides.ItemID, overrides.Enabled, raw); err != nil {
		return fmt.Errorf("failed to put overrides: %w", err)
	}
	return nil
}

// GetItem retrieves a content item by identifier.
func (p *postgres) GetItem(ctx context.Context, id string) (*model.Item, error) {
	query := `SELECT id, title, excerpt, published_at, permalink, content_type, featured_image_id, fields
	          FROM items WHERE id = $1`
	var item model.Item
	var raw []byte

	err := p.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Title,
		&item.Excerpt,
		&item.PublishedAt,
		&item.Permalink,
		&item.ContentType,
		&item.FeaturedImageID,
		&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if err := json.Unmarshal(raw, &item.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode item fields: %w", err)
	}

	return &item, nil
}

// PutItem creates or replaces a content item.
func (p *postgres) PutItem(ctx context.Context, item model.Item) error {
	fields := item.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal item fields: %w", err)
	}

	query := `INSERT INTO items (id, title, excerpt, published_at, permalink, content_type, featured_image_id, fields)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (id) DO UPDATE SET
	              title = $2, excerpt = $3, published_at = $4, permalink = $5,
	              content_type = $6, featured_image_id = $7, fields = $8`
	_, err = p.db.Exec(ctx, query,
		item.ID,
		item.Title,
		item.Excerpt,
		item.PublishedAt,
		item.Permalink,
		item.ContentType,
		item.FeaturedImageID,
		raw)
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// GetAttachment retrieves attachment metadata by numeric identifier.
func (p *postgres) GetAttachment(ctx context.Context, id int64) (*model.Attachment, error) {
	query := `SELECT id, url, mime_type, size, width, height FROM attachments WHERE id = $1`
	var att model.Attachment

	err := p.db.QueryRow(ctx, query, id).Scan(
		&att.ID,
		&att.URL,
		&att.MimeType,
		&att.Size,
		&att.Width,
		&att.Height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return &att, nil
}

// PutAttachment creates or replaces attachment metadata.
func (p *postgres) PutAttachment(ctx context.Context, att model.Attachment) error {
	query := `INSERT INTO attachments (id, url, mime_type, size, width, height)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (id) DO UPDATE SET
	              url = $2, mime_type = $3, size = $4, width = $5, height = $6`
	_, err := p.db.Exec(ctx, query, att.ID, att.URL, att.MimeType, att.Size, att.Width, att.Height)
	if err != nil {
		return fmt.Errorf("failed to put attachment: %w", err)
	}
	return nil
}
