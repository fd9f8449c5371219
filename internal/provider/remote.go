// internal/provider/remote.go
// RemoteContent is an HTTP content provider for deployments where items live
// in an origin CMS rather than the local store. It resolves items over the
// origin's JSON endpoint and answers field lookups from the fetched item.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
)

// RemoteContent fetches content items from an origin CMS endpoint.
type RemoteContent struct {
	base string       // Base URL of the origin CMS
	hc   *http.Client // HTTP client with custom configuration
}

// NewRemoteContent creates a remote content provider with the specified base URL.
// It configures appropriate timeouts for origin requests.
func NewRemoteContent(baseURL string) *RemoteContent {
	// Configure HTTP transport with connection timeouts
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 2 * time.Second}).DialContext,
	}

	return &RemoteContent{
		base: baseURL,
		hc:   &http.Client{Transport: transport, Timeout: 3 * time.Second},
	}
}

// Item retrieves one item from the origin.
// Parameters:
//   - ctx: Context for the request
//   - id: Item identifier to resolve
// Returns:
//   - *model.Item: The item if found
//   - error: ErrNotFound if the item doesn't exist, or other error
func (c *RemoteContent) Item(ctx context.Context, id string) (*model.Item, error) {
	// Construct the request URL
	u, _ := url.Parse(c.base)
	u.Path = "/vsd/v1/items/" + url.PathEscape(id)

	// Create and execute the HTTP request
	req, _ := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Handle different response status codes
	switch resp.StatusCode {
	case http.StatusOK:
		// Parse successful response
		var item model.Item
		if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
			return nil, err
		}
		return &item, nil
	case http.StatusNotFound:
		// Item not found
		return nil, ErrNotFound
	default:
		// Other error
		return nil, fmt.Errorf("origin item get failed: %s", resp.Status)
	}
}

// Field answers a named field lookup from the fetched item's metadata.
// Provider failures degrade to a miss.
func (c *RemoteContent) Field(ctx context.Context, itemID, name string) (interface{}, bool) {
	item, err := c.Item(ctx, itemID)
	if err != nil || item.Fields == nil {
		return nil, false
	}
	v, exists := item.Fields[name]
	if !exists {
		return nil, false
	}
	return v, true
}

// HasFieldProvider reports whether the origin exposes metadata for the item.
func (c *RemoteContent) HasFieldProvider(ctx context.Context, itemID string) bool {
	item, err := c.Item(ctx, itemID)
	return err == nil && item.Fields != nil
}
