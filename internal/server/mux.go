// internal/server/mux.go
// Package server implements the HTTP handlers and routing for the VSD service.
// It provides the public document read, the administrative preview and
// configuration surface with JWT authentication, schema validation of
// assembled documents, and event publishing.
package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SchemaPress/schemapress-vsd-go/internal/assemble"
	errordefs "github.com/SchemaPress/schemapress-vsd-go/internal/errors"
	"github.com/SchemaPress/schemapress-vsd-go/internal/event"
	"github.com/SchemaPress/schemapress-vsd-go/internal/jwks"
	"github.com/SchemaPress/schemapress-vsd-go/internal/metrics"
	"github.com/SchemaPress/schemapress-vsd-go/internal/model"
	"github.com/SchemaPress/schemapress-vsd-go/internal/provider"
	"github.com/SchemaPress/schemapress-vsd-go/internal/schema"
	"github.com/SchemaPress/schemapress-vsd-go/internal/storage"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

const (
	// Context keys for storing request-scoped values
	ContextKeySubject       ContextKey = "subject"       // Stores the subject from JWT
	ContextKeyCorrelationID ContextKey = "correlationId" // Unique ID for request tracking
)

// Mux handles HTTP requests for the VSD service.
// It implements all the required endpoints and manages dependencies
// such as storage, document assembly, and event publishing.
type Mux struct {
	mux        *http.ServeMux       // HTTP request multiplexer
	s          storage.Store        // Storage interface for configuration and fixtures
	p          event.Publisher      // Event publisher for streaming updates
	assembler  *assemble.Assembler  // Document assembler
	jwksClient *jwks.Client         // JWKS client for JWT validation
	jwtIssuer  string               // Expected JWT issuer for validation
	jwtAudience string              // Expected JWT audience for validation
	validator  *schema.Validator    // Schema validator for preview diagnostics
	metrics    *metrics.Metrics     // Metrics for monitoring

	// CORS configuration
	corsAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
}

// NewMux creates a new HTTP mux with all VSD endpoints.
// It initializes all dependencies and registers the HTTP handlers.
// Parameters:
//   - s: Storage interface for configuration and fixtures
//   - p: Event publisher for streaming updates
//   - assembler: Document assembler for the read and preview endpoints
//   - jwtIssuer: Expected JWT issuer for validation
//   - jwtAudience: Expected JWT audience for validation
//   - jwksClient: JWKS client, or nil to discover keys from the issuer
//   - schemaURL: Optional registry URL for published document schemas
func NewMux(s storage.Store, p event.Publisher, assembler *assemble.Assembler, jwtIssuer, jwtAudience string, jwksClient *jwks.Client, schemaURL string) *http.ServeMux {
	// Initialize schema validator
	validator, err := schema.NewValidator()
	if err != nil {
		slog.Error("failed to initialize schema validator", "error", err)
		os.Exit(1)
	}

	// Use provided JWKS client or create a new one
	if jwksClient == nil {
		jwksClient = jwks.NewClient(fmt.Sprintf("%s/.well-known/jwks.json", jwtIssuer))
	}

	// Attach the remote schema resolver when a registry is configured
	if schemaURL != "" {
		resolver := schema.NewResolver(schemaURL, "/tmp/schemapress-vsd-schema-cache")
		validator.SetResolver(resolver)
	}

	m := &Mux{
		mux:         http.NewServeMux(),
		s:           s,
		p:           p,
		assembler:   assembler,
		jwksClient:  jwksClient,
		jwtIssuer:   jwtIssuer,
		jwtAudience: jwtAudience,
		validator:   validator,
		metrics:     metrics.NewMetrics(),
	}

	// Register health endpoints
	m.mux.HandleFunc("/healthz", m.handleHealthz)
	m.mux.HandleFunc("/readyz", m.handleReadyz)
	m.mux.Handle("/metrics", promhttp.Handler())

	// Register VSD endpoints with appropriate middleware
	m.mux.HandleFunc("/v1/items", m.method("POST", m.withMiddleware(m.handleCreateItem)))
	m.mux.HandleFunc("/v1/items/", m.withMiddleware(m.handleItemRoutes))
	m.mux.HandleFunc("/v1/config/mapping", m.withMiddleware(m.handleMapping))
	m.mux.HandleFunc("/v1/config/types", m.withMiddleware(m.handleTypes))
	m.mux.HandleFunc("/v1/attachments", m.method("POST", m.withMiddleware(m.handleCreateAttachment)))

	return m.mux
}

// method ensures the HTTP method matches the expected method
func (m *Mux) method(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			err := errordefs.New(errordefs.VSD_BAD_REQUEST, "method not allowed", "")
			m.writeErrorDef(w, err)
			return
		}
		h(w, r)
	}
}

// withMiddleware applies common middleware to handlers
func (m *Mux) withMiddleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Handle CORS preflight requests
		if r.Method == "OPTIONS" {
			// Set CORS headers
			if len(m.corsAllowedOrigins) > 0 {
				origin := r.Header.Get("Origin")
				if origin != "" {
					// Check if origin is allowed
					allowed := false
					for _, allowedOrigin := range m.corsAllowedOrigins {
						if allowedOrigin == "*" || allowedOrigin == origin {
							allowed = true
							break
						}
					}
					if allowed {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
						w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Correlation-Id")
						w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
					}
				}
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		// Set CORS headers for regular requests
		if len(m.corsAllowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			if origin != "" {
				// Check if origin is allowed
				allowed := false
				for _, allowedOrigin := range m.corsAllowedOrigins {
					if allowedOrigin == "*" || allowedOrigin == origin {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			}
		}

		// Add correlation ID if not present
		correlationID := r.Header.Get("X-Correlation-Id")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		r = r.WithContext(context.WithValue(r.Context(), ContextKeyCorrelationID, correlationID))
		w.Header().Set("X-Correlation-Id", correlationID)

		// Apply JWT authentication to the administrative surface: all writes
		// plus the preview diagnostic read
		if m.requiresAuth(r) {
			subject, err := m.validateJWT(r)
			if err != nil {
				// Check if err is already an errordefs.Error or create a new one
				var errorDef *errordefs.Error
				if e, ok := err.(*errordefs.Error); ok {
					errorDef = e
					errorDef.CorrelationID = correlationID
				} else {
					errorDef = errordefs.New(errordefs.VSD_AUTHZ, err.Error(), correlationID)
				}
				m.writeErrorDef(w, errorDef)
				m.logRequest(r, errorDef.HTTPStatus, time.Since(start), correlationID, err)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), ContextKeySubject, subject))
		}

		// Call the handler
		h(w, r)
	}
}

// requiresAuth reports whether the request targets the administrative
// surface. The public document read stays open; everything that mutates
// state or exposes diagnostics needs a valid token.
func (m *Mux) requiresAuth(r *http.Request) bool {
	if r.Method == "POST" || r.Method == "PUT" {
		return true
	}
	return strings.HasSuffix(r.URL.Path, "/preview") || strings.HasPrefix(r.URL.Path, "/v1/config/")
}

// validateJWT validates a JWT and extracts the subject using JWKS
func (m *Mux) validateJWT(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errordefs.New(errordefs.VSD_AUTHN, "missing Authorization header", "")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errordefs.New(errordefs.VSD_AUTHN, "invalid Authorization header format", "")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	// Validate JWT using JWKS
	claims, err := m.jwksClient.ValidateJWT(r.Context(), tokenString, m.jwtIssuer, m.jwtAudience)
	if err != nil {
		// Map specific JWT validation errors to appropriate error codes
		errStr := err.Error()
		if strings.Contains(errStr, "expired") {
			return "", errordefs.New(errordefs.VSD_JWT_EXPIRED, "JWT token expired", "")
		} else if strings.Contains(errStr, "invalid issuer") {
			return "", errordefs.New(errordefs.VSD_JWT_INVALID, "invalid JWT issuer", "")
		} else if strings.Contains(errStr, "invalid audience") {
			return "", errordefs.New(errordefs.VSD_JWT_INVALID, "invalid JWT audience", "")
		} else if strings.Contains(errStr, "kid") {
			return "", errordefs.New(errordefs.VSD_JWT_MALFORMED, "missing or invalid kid in JWT header", "")
		} else if strings.Contains(errStr, "key") {
			return "", errordefs.New(errordefs.VSD_JWT_INVALID, "failed to get key for JWT validation", "")
		} else if strings.Contains(errStr, "signature") || strings.Contains(errStr, "verify") {
			return "", errordefs.New(errordefs.VSD_JWT_INVALID, "invalid JWT signature", "")
		} else {
			return "", errordefs.New(errordefs.VSD_JWT_INVALID, fmt.Sprintf("failed to validate JWT: %v", err), "")
		}
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", errordefs.New(errordefs.VSD_JWT_INVALID, "missing or invalid sub claim", "")
	}

	return subject, nil
}

// writeSuccess writes a successful response
func (m *Mux) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"data": data,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// writeError writes an error response following the VSD error taxonomy
func (m *Mux) writeError(w http.ResponseWriter, statusCode int, code, message, correlationID string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"error": map[string]interface{}{
			"code":          code,
			"message":       message,
			"correlationId": correlationID,
		},
	}

	if details != nil {
		response["error"].(map[string]interface{})["details"] = details
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeErrorDef writes an error response using the error definitions package
func (m *Mux) writeErrorDef(w http.ResponseWriter, err *errordefs.Error) {
	m.writeError(w, err.HTTPStatus, string(err.Code), err.Message, err.CorrelationID, err.Details)
}

// logRequest logs request details and records the HTTP request metrics
func (m *Mux) logRequest(r *http.Request, status int, duration time.Duration, correlationID string, err error) {
	m.metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Inc()
	m.metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(status)).Observe(duration.Seconds())

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("user_agent", r.UserAgent()),
		slog.String("remote_addr", r.RemoteAddr),
	}

	if correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	if subject, ok := r.Context().Value(ContextKeySubject).(string); ok && subject != "" {
		attrs = append(attrs, slog.String("subject", subject))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.LogAttrs(r.Context(), slog.LevelError, "request completed with error", attrs...)
	} else {
		slog.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
	}
}

// correlationID extracts the request's correlation ID from the context
func correlationID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// handleHealthz handles liveness health check requests
func (m *Mux) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz handles readiness health check requests
func (m *Mux) handleReadyz(w http.ResponseWriter, r *http.Request) {
	// Test storage connectivity with a probe read. ErrNotFound means the
	// backend answered; any other error indicates a problem.
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, err := m.s.GetItem(ctx, "health-check")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleItemRoutes dispatches the per-item subresources:
//   GET /v1/items/{id}/document
//   GET /v1/items/{id}/preview
//   PUT /v1/items/{id}/overrides
func (m *Mux) handleItemRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/items/")
	itemID, sub, _ := strings.Cut(path, "/")

	if itemID == "" {
		err := errordefs.New(errordefs.VSD_VALIDATION, "item id is required", correlationID(r.Context()))
		m.writeErrorDef(w, err)
		return
	}

	switch {
	case sub == "document" && r.Method == "GET":
		m.handleGetDocument(w, r, itemID)
	case sub == "preview" && r.Method == "GET":
		m.handlePreview(w, r, itemID)
	case sub == "overrides" && r.Method == "PUT":
		m.handlePutOverrides(w, r, itemID)
	default:
		err := errordefs.New(errordefs.VSD_BAD_REQUEST, "unknown item resource", correlationID(r.Context()))
		m.writeErrorDef(w, err)
	}
}

// handleGetDocument handles GET /v1/items/{id}/document.
// This is the public read: eligibility gating applies, so items without a
// usable mapping or opt-in produce a not-found response rather than a
// partial document.
func (m *Mux) handleGetDocument(w http.ResponseWriter, r *http.Request, itemID string) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handleGetDocument")
	defer span.End()

	start := time.Now()
	span.SetAttributes(attribute.String("itemId", itemID))

	doc, err := m.assembler.Assemble(ctx, itemID)
	if err != nil {
		cid := correlationID(ctx)
		if errors.Is(err, provider.ErrNotFound) {
			span.SetStatus(codes.Error, "item not found")
			errDef := errordefs.New(errordefs.VSD_NOT_FOUND, "item not found", cid)
			m.writeErrorDef(w, errDef)
			m.logRequest(r, http.StatusNotFound, time.Since(start), cid, err)
			return
		}
		span.SetStatus(codes.Error, "assembly failed")
		errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to assemble document", cid)
		m.writeErrorDef(w, errDef)
		m.logRequest(r, http.StatusInternalServerError, time.Since(start), cid, err)
		return
	}

	// Withheld or incomplete documents are indistinguishable from absent
	// ones on the public surface
	if !assemble.IsEligibleForDisplay(doc) {
		cid := correlationID(ctx)
		errDef := errordefs.New(errordefs.VSD_NOT_ELIGIBLE, "no document for item", cid)
		m.writeErrorDef(w, errDef)
		m.logRequest(r, http.StatusNotFound, time.Since(start), cid, nil)
		return
	}

	// Publish document assembled event
	if err := m.p.PublishDocumentAssembled(ctx, itemID, doc); err != nil {
		slog.Warn("failed to publish document assembled event", "error", err)
	}

	m.writeSuccess(w, http.StatusOK, doc)
	m.logRequest(r, http.StatusOK, time.Since(start), correlationID(ctx), nil)
}

// handlePreview handles GET /v1/items/{id}/preview.
// The preview bypasses eligibility gating and reports the diagnostic
// picture: the document as assembled, the required fields still missing,
// and any schema-validation findings.
func (m *Mux) handlePreview(w http.ResponseWriter, r *http.Request, itemID string) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handlePreview")
	defer span.End()

	span.SetAttributes(attribute.String("itemId", itemID))

	doc, err := m.assembler.Preview(ctx, itemID)
	if err != nil {
		cid := correlationID(ctx)
		if errors.Is(err, provider.ErrNotFound) {
			span.SetStatus(codes.Error, "item not found")
			errDef := errordefs.New(errordefs.VSD_NOT_FOUND, "item not found", cid)
			m.writeErrorDef(w, errDef)
			return
		}
		span.SetStatus(codes.Error, "assembly failed")
		errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to assemble document", cid)
		m.writeErrorDef(w, errDef)
		return
	}

	preview := model.PreviewData{
		Document:      doc,
		Eligible:      assemble.IsEligibleForDisplay(doc),
		MissingFields: assemble.MissingRequiredFields(doc),
	}

	// Schema findings are diagnostics, never a reason to fail the preview
	if doc != nil {
		findings, err := m.validator.Validate(model.TypeVideoObject, doc)
		if err != nil {
			slog.Warn("schema validation unavailable", "itemId", itemID, "error", err)
		} else {
			preview.SchemaErrors = findings
		}
	}

	m.writeSuccess(w, http.StatusOK, preview)
}

// handlePutOverrides handles PUT /v1/items/{id}/overrides
func (m *Mux) handlePutOverrides(w http.ResponseWriter, r *http.Request, itemID string) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handlePutOverrides")
	defer span.End()
	defer r.Body.Close()

	var req model.PutOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		errDef := errordefs.New(errordefs.VSD_VALIDATION, "invalid JSON", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	span.SetAttributes(
		attribute.String("itemId", itemID),
		attribute.Bool("enabled", req.Enabled),
		attribute.Int("values", len(req.Values)),
	)

	overrides := model.OverrideSet{
		ItemID:  itemID,
		Enabled: req.Enabled,
		Values:  req.Values,
	}

	if err := m.s.PutOverrides(ctx, overrides); err != nil {
		cid := correlationID(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			errDef := errordefs.New(errordefs.VSD_NOT_FOUND, "item not found", cid)
			m.writeErrorDef(w, errDef)
			return
		}
		errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to store overrides", cid)
		m.writeErrorDef(w, errDef)
		return
	}

	m.writeSuccess(w, http.StatusOK, overrides)
}

// handleMapping handles GET and PUT /v1/config/mapping
func (m *Mux) handleMapping(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handleMapping")
	defer span.End()

	switch r.Method {
	case "GET":
		cfg, err := m.s.GetMappingConfig(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to load mapping")
			errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to load mapping", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}
		m.writeSuccess(w, http.StatusOK, model.PutMappingRequest{Mapping: cfg})

	case "PUT":
		defer r.Body.Close()
		var req model.PutMappingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			span.SetStatus(codes.Error, "invalid JSON")
			errDef := errordefs.New(errordefs.VSD_VALIDATION, "invalid JSON", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}

		span.SetAttributes(attribute.Int("rules", len(req.Mapping)))

		if err := m.s.SetMappingConfig(ctx, req.Mapping); err != nil {
			errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to store mapping", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}

		// Publish configuration updated event
		if err := m.p.PublishConfigUpdated(ctx, "mapping"); err != nil {
			slog.Warn("failed to publish config updated event", "error", err)
		}

		m.writeSuccess(w, http.StatusOK, req)

	default:
		errDef := errordefs.New(errordefs.VSD_BAD_REQUEST, "method not allowed", correlationID(ctx))
		m.writeErrorDef(w, errDef)
	}
}

// handleTypes handles GET and PUT /v1/config/types
func (m *Mux) handleTypes(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handleTypes")
	defer span.End()

	switch r.Method {
	case "GET":
		types, err := m.s.GetTypeAllowlist(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "failed to load type allowlist")
			errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to load type allowlist", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}
		if types == nil {
			types = model.DefaultTypeAllowlist
		}
		m.writeSuccess(w, http.StatusOK, model.PutTypesRequest{Types: types})

	case "PUT":
		defer r.Body.Close()
		var req model.PutTypesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			span.SetStatus(codes.Error, "invalid JSON")
			errDef := errordefs.New(errordefs.VSD_VALIDATION, "invalid JSON", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}

		span.SetAttributes(attribute.Int("types", len(req.Types)))

		if err := m.s.SetTypeAllowlist(ctx, req.Types); err != nil {
			errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to store type allowlist", correlationID(ctx))
			m.writeErrorDef(w, errDef)
			return
		}

		// Publish configuration updated event
		if err := m.p.PublishConfigUpdated(ctx, "types"); err != nil {
			slog.Warn("failed to publish config updated event", "error", err)
		}

		m.writeSuccess(w, http.StatusOK, req)

	default:
		errDef := errordefs.New(errordefs.VSD_BAD_REQUEST, "method not allowed", correlationID(ctx))
		m.writeErrorDef(w, errDef)
	}
}

// handleCreateItem handles POST /v1/items.
// Items normally arrive from the origin CMS; this endpoint exists for
// self-hosted deployments and test fixtures.
func (m *Mux) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handleCreateItem")
	defer span.End()
	defer r.Body.Close()

	var req model.PutItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		errDef := errordefs.New(errordefs.VSD_VALIDATION, "invalid JSON", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	span.SetAttributes(
		attribute.String("contentType", req.ContentType),
		attribute.Bool("has_id", req.ID != ""),
		attribute.Bool("has_fields", req.Fields != nil),
	)

	// Validate required fields
	if req.Permalink == "" || req.ContentType == "" {
		errDef := errordefs.New(errordefs.VSD_VALIDATION, "permalink and contentType are required", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	// Mint a ULID when the caller did not supply an identifier, for
	// lexicographical ordering and collision resistance
	itemID := req.ID
	if itemID == "" {
		entropy := ulid.Monotonic(rand.Reader, 0)
		itemID = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}

	// Use provided publish time or current time
	publishedAt := time.Now().UTC()
	if req.PublishedAt != nil {
		publishedAt = *req.PublishedAt
	}

	item := model.Item{
		ID:              itemID,
		Title:           req.Title,
		Excerpt:         req.Excerpt,
		PublishedAt:     publishedAt,
		Permalink:       req.Permalink,
		ContentType:     req.ContentType,
		FeaturedImageID: req.FeaturedImageID,
		Fields:          req.Fields,
	}

	if err := m.s.PutItem(ctx, item); err != nil {
		errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to store item", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	m.writeSuccess(w, http.StatusOK, item)
}

// handleCreateAttachment handles POST /v1/attachments
func (m *Mux) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("vsd-service").Start(r.Context(), "handleCreateAttachment")
	defer span.End()
	defer r.Body.Close()

	var att model.Attachment
	if err := json.NewDecoder(r.Body).Decode(&att); err != nil {
		span.SetStatus(codes.Error, "invalid JSON")
		errDef := errordefs.New(errordefs.VSD_VALIDATION, "invalid JSON", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	span.SetAttributes(
		attribute.Int64("id", att.ID),
		attribute.String("mimeType", att.MimeType),
	)

	// Validate required fields. The URL may be an S3 object key; the
	// attachment provider presigns it on read.
	if att.ID <= 0 || att.URL == "" {
		errDef := errordefs.New(errordefs.VSD_VALIDATION, "id and url are required", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	if err := m.s.PutAttachment(ctx, att); err != nil {
		errDef := errordefs.New(errordefs.VSD_INTERNAL, "failed to store attachment", correlationID(ctx))
		m.writeErrorDef(w, errDef)
		return
	}

	m.writeSuccess(w, http.StatusOK, att)
}
