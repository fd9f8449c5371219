// internal/server/mux_test.go
// Package server provides unit tests for the HTTP handlers and routing.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/assemble"
	"github.com/SchemaPress/schemapress-vsd-go/internal/jwks"
	"github.com/SchemaPress/schemapress-vsd-go/internal/media"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/provider"
	"github.com/SchemaPress/schemapress-vsd-go/internal/storage"
)

// mockPublisher implements event.Publisher for testing purposes.
// It provides no-op implementations of all Publisher methods.
type mockPublisher struct{}

// PublishDocumentAssembled implements event.Publisher for testing.
// It returns nil to indicate successful publishing.
func (m *mockPublisher) PublishDocumentAssembled(ctx context.Context, itemID string, doc model.Document) error {
	return nil
}

// PublishConfigUpdated implements event.Publisher for testing.
// It returns nil to indicate successful publishing.
func (m *mockPublisher) PublishConfigUpdated(ctx context.Context, kind string) error {
	return nil
}

// Close implements event.Publisher for testing.
// It returns nil to indicate successful closing.
func (m *mockPublisher) Close() error {
	return nil
}

// newTestMux creates a mux over a fresh memory store with test-mode JWT
// validation.
func newTestMux(t *testing.T) (*http.ServeMux, storage.Store, *jwks.Client) {
	t.Helper()
	store := storage.NewMemory()
	pub := &mockPublisher{}
	jwksClient := jwks.NewTestClient()

	content := provider.NewStoreContent(store)
	normalizer := media.New(provider.NewStoreAttachments(store, nil))
	assembler := assemble.New(store, content, normalizer, nil, assemble.Options{})

	mux := NewMux(store, pub, assembler, "test-issuer", "test-audience", jwksClient, "")
	return mux, store, jwksClient
}

// adminToken mints a valid test-mode bearer token.
func adminToken(t *testing.T, jwksClient *jwks.Client) string {
	t.Helper()
	token, err := jwksClient.TestToken("test-issuer", "test-audience", "test-admin")
	if err != nil {
		t.Fatalf("failed to mint test token: %v", err)
	}
	return token
}

// errorCode extracts the error code from an error response body.
func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		t.Fatalf("failed to parse error response: %v", err)
	}
	errorObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got %s", body)
	}
	code, _ := errorObj["code"].(string)
	return code
}

// TestHealthzEndpoint tests the healthz endpoint.
// It verifies that the /healthz endpoint returns a 200 OK status
// and the expected response body.
func TestHealthzEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req, err := http.NewRequest("GET", "/healthz", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := "ok"
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

// TestReadyzEndpoint tests the readyz endpoint.
// It verifies that the /readyz endpoint returns a 200 OK status
// when the storage backend answers the probe read.
func TestReadyzEndpoint(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req, err := http.NewRequest("GET", "/readyz", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := "ok"
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

// TestGetDocument tests the public document read for a fully mapped item.
func TestGetDocument(t *testing.T) {
	mux, store, _ := newTestMux(t)
	ctx := context.Background()

	if err := store.SetMappingConfig(ctx, model.MappingConfig{
		model.KeyTitle:        model.PathRule("video.title"),
		model.KeyThumbnailURL: model.PathRule("video.poster"),
	}); err != nil {
		t.Fatalf("failed to seed mapping: %v", err)
	}
	if err := store.PutItem(ctx, model.Item{
		ID:          "item-1",
		Title:       "Fallback",
		PublishedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/item-1",
		ContentType: "post",
		Fields: map[string]interface{}{
			"video": map[string]interface{}{
				"title":  "Mapped Title",
				"poster": "https://example.com/poster.jpg",
			},
		},
	}); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	req, err := http.NewRequest("GET", "/v1/items/item-1/document", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", status, http.StatusOK, rr.Body.String())
	}

	var envelope model.DocumentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	doc := envelope.Data
	if doc["@type"] != "VideoObject" || doc["name"] != "Mapped Title" {
		t.Errorf("document = %v, want mapped VideoObject", doc)
	}
	if doc["thumbnailUrl"] != "https://example.com/poster.jpg" {
		t.Errorf("thumbnailUrl = %v, want the mapped poster", doc["thumbnailUrl"])
	}

	// The middleware assigns a correlation ID on every response
	if rr.Header().Get("X-Correlation-Id") == "" {
		t.Error("response missing X-Correlation-Id header")
	}
}

// TestGetDocumentNotFound tests the public read for an unknown item.
func TestGetDocumentNotFound(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req, err := http.NewRequest("GET", "/v1/items/missing/document", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "VSD_NOT_FOUND" {
		t.Errorf("error code = %v, want VSD_NOT_FOUND", code)
	}
}

// TestGetDocumentWithheld tests that an item the gate withholds is
// indistinguishable from an absent one on the public surface.
func TestGetDocumentWithheld(t *testing.T) {
	mux, store, _ := newTestMux(t)

	// An item with no metadata, no mapping and no opt-in
	if err := store.PutItem(context.Background(), model.Item{
		ID:          "bare-1",
		Title:       "Bare",
		PublishedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/bare-1",
		ContentType: "post",
	}); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	req, err := http.NewRequest("GET", "/v1/items/bare-1/document", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "VSD_NOT_ELIGIBLE" {
		t.Errorf("error code = %v, want VSD_NOT_ELIGIBLE", code)
	}
}

// TestPreviewRequiresAuth tests that the preview read is part of the
// authenticated administrative surface.
func TestPreviewRequiresAuth(t *testing.T) {
	mux, _, _ := newTestMux(t)

	req, err := http.NewRequest("GET", "/v1/items/item-1/preview", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}

// TestPreview tests the authenticated preview diagnostics for an item the
// gate would withhold.
func TestPreview(t *testing.T) {
	mux, store, jwksClient := newTestMux(t)

	if err := store.PutItem(context.Background(), model.Item{
		ID:          "bare-1",
		Title:       "Bare",
		PublishedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Permalink:   "https://example.com/bare-1",
		ContentType: "post",
	}); err != nil {
		t.Fatalf("failed to seed item: %v", err)
	}

	req, err := http.NewRequest("GET", "/v1/items/bare-1/preview", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", status, http.StatusOK, rr.Body.String())
	}

	var envelope model.PreviewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	preview := envelope.Data
	if preview.Eligible {
		t.Error("preview reported an incomplete document as eligible")
	}
	if len(preview.MissingFields) == 0 {
		t.Error("preview reported no missing fields for an incomplete document")
	}
	if preview.Document == nil || preview.Document["name"] != "Bare" {
		t.Errorf("preview document = %v, want the ungated assembly", preview.Document)
	}
}

// TestPutOverridesUnknownItem tests that override writes require the owning
// item to exist.
func TestPutOverridesUnknownItem(t *testing.T) {
	mux, _, jwksClient := newTestMux(t)

	body := `{"enabled":true,"values":{"title":"Override"}}`
	req, err := http.NewRequest("PUT", "/v1/items/missing/overrides", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "VSD_NOT_FOUND" {
		t.Errorf("error code = %v, want VSD_NOT_FOUND", code)
	}
}

// TestConfigRequiresAuth tests that configuration reads and writes are
// authenticated.
func TestConfigRequiresAuth(t *testing.T) {
	mux, _, _ := newTestMux(t)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{"GET", "/v1/config/mapping"},
		{"PUT", "/v1/config/mapping"},
		{"GET", "/v1/config/types"},
		{"PUT", "/v1/config/types"},
	} {
		req, err := http.NewRequest(tc.method, tc.path, strings.NewReader(`{}`))
		if err != nil {
			t.Fatal(err)
		}

		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		if status := rr.Code; status != http.StatusUnauthorized {
			t.Errorf("%s %s returned status %v, want %v", tc.method, tc.path, status, http.StatusUnauthorized)
		}
	}
}

// TestTypesDefaultAllowlist tests that the types read falls back to the
// default allowlist when none has been configured.
func TestTypesDefaultAllowlist(t *testing.T) {
	mux, _, jwksClient := newTestMux(t)

	req, err := http.NewRequest("GET", "/v1/config/types", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", status, http.StatusOK, rr.Body.String())
	}

	var response struct {
		Data model.PutTypesRequest `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !response.Data.Types.Contains("post") || !response.Data.Types.Contains("page") {
		t.Errorf("default types = %v, want [post page]", response.Data.Types)
	}
}

// TestCreateItemValidation tests validation of the create item endpoint.
// It verifies that the endpoint properly validates required fields
// and returns appropriate error responses for invalid requests.
func TestCreateItemValidation(t *testing.T) {
	mux, _, jwksClient := newTestMux(t)

	// Missing permalink and contentType
	req, err := http.NewRequest("POST", "/v1/items", strings.NewReader(`{"title":"No Permalink"}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
	if code := errorCode(t, rr.Body.Bytes()); code != "VSD_VALIDATION" {
		t.Errorf("error code = %v, want VSD_VALIDATION", code)
	}
}

// TestCreateItemMintsID tests that an item created without an identifier
// gets one minted.
func TestCreateItemMintsID(t *testing.T) {
	mux, store, jwksClient := newTestMux(t)

	body := `{"title":"Minted","permalink":"https://example.com/minted","contentType":"post"}`
	req, err := http.NewRequest("POST", "/v1/items", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", status, http.StatusOK, rr.Body.String())
	}

	var response struct {
		Data model.Item `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Data.ID == "" {
		t.Fatal("created item has no identifier")
	}
	if len(response.Data.ID) != 26 {
		t.Errorf("minted identifier %q is not ULID-shaped", response.Data.ID)
	}

	// The item is retrievable under the minted identifier
	if _, err := store.GetItem(context.Background(), response.Data.ID); err != nil {
		t.Errorf("minted item not stored: %v", err)
	}
}

// TestCreateAttachmentValidation tests validation of the create attachment
// endpoint.
func TestCreateAttachmentValidation(t *testing.T) {
	mux, _, jwksClient := newTestMux(t)

	req, err := http.NewRequest("POST", "/v1/attachments", strings.NewReader(`{"id":0,"url":""}`))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken(t, jwksClient))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}
