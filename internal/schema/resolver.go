// Package schema also resolves published schema revisions from a remote
// registry, with a small on-disk cache so restarts and registry outages do
// not cost the built-in fallback.
package schema

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Resolver fetches published document schemas from a registry URL.
type Resolver struct {
	registryURL  string
	cacheDir     string
	cached       map[string]string // In-memory schema cache by document type
	lastUpdate   time.Time
	cacheTimeout time.Duration
}

// NewResolver creates a schema resolver.
// Parameters:
//   - registryURL: Base URL serving <DocType>.schema.json documents
//   - cacheDir: Local directory for the on-disk schema cache
func NewResolver(registryURL, cacheDir string) *Resolver {
	return &Resolver{
		registryURL:  registryURL,
		cacheDir:     cacheDir,
		cached:       make(map[string]string),
		cacheTimeout: 5 * time.Minute, // 5-minute cache
	}
}

// Schema returns the published schema for a document type, preferring the
// in-memory cache, then the on-disk cache, then the registry. A registry
// failure with a warm cache serves the stale copy.
func (r *Resolver) Schema(docType string) (string, error) {
	if !DocumentTypes[docType] {
		return "", fmt.Errorf("unsupported document type: %s", docType)
	}

	// Fresh in-memory copy
	if s, ok := r.cached[docType]; ok && time.Since(r.lastUpdate) < r.cacheTimeout {
		return s, nil
	}

	// On-disk cache next
	if s, err := r.loadFromCache(docType); err == nil && s != "" {
		r.cached[docType] = s
		r.lastUpdate = time.Now()
		return s, nil
	}

	// Fetch from the registry
	s, err := r.fetchFromRemote(docType)
	if err != nil {
		// Serve stale on registry failure
		if stale, ok := r.cached[docType]; ok {
			return stale, nil
		}
		return "", fmt.Errorf("failed to fetch schema: %w", err)
	}

	r.cached[docType] = s
	r.lastUpdate = time.Now()
	r.saveToCache(docType, s)
	return s, nil
}

// loadFromCache reads a schema from the on-disk cache.
func (r *Resolver) loadFromCache(docType string) (string, error) {
	cachePath := filepath.Join(r.cacheDir, docType+".schema.json")
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// saveToCache writes a schema to the on-disk cache. Cache errors are ignored.
func (r *Resolver) saveToCache(docType, schemaJSON string) {
	if err := os.MkdirAll(r.cacheDir, 0755); err != nil {
		return
	}
	cachePath := filepath.Join(r.cacheDir, docType+".schema.json")
	_ = os.WriteFile(cachePath, []byte(schemaJSON), 0644)
}

// fetchFromRemote fetches a schema from the registry.
func (r *Resolver) fetchFromRemote(docType string) (string, error) {
	schemaURL := r.registryURL + "/" + docType + ".schema.json"
	resp, err := http.Get(schemaURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch schema: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
