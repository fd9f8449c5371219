// internal/schema/validator.go
// Package schema provides JSON schema validation for assembled documents.
// The preview surface reports findings so administrators can fix mapping
// problems before a document reaches consuming systems.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// DocumentTypes lists the document types supported for validation.
var DocumentTypes = map[string]bool{
	"VideoObject": true, // Assembled structured-data documents
}

// videoObjectSchema is the built-in schema for assembled documents. The
// resolver may supersede it with a newer published revision at runtime.
const videoObjectSchema = `{
  "type": "object",
  "required": ["@context", "@type"],
  "properties": {
    "@context": {"type": "string", "enum": ["https://schema.org"]},
    "@type": {"type": "string", "enum": ["VideoObject"]},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "uploadDate": {"type": "string", "minLength": 4},
    "duration": {"type": "string", "pattern": "^P"},
    "thumbnailUrl": {
      "oneOf": [
        {"type": "string", "format": "uri"},
        {"type": "array", "items": {"type": "string", "format": "uri"}, "minItems": 1},
        {"$ref": "#/definitions/imageObject"}
      ]
    },
    "image": {
      "oneOf": [
        {"type": "string", "format": "uri"},
        {"type": "array", "items": {"type": "string", "format": "uri"}, "minItems": 1},
        {"$ref": "#/definitions/imageObject"}
      ]
    },
    "contentUrl": {"type": "string", "format": "uri"},
    "embedUrl": {"type": "string", "format": "uri"},
    "encodingFormat": {"type": "string"},
    "contentSize": {"type": "string", "pattern": "^[0-9]+$"},
    "transcript": {"type": "string"},
    "inLanguage": {"type": "string"},
    "accessibilitySummary": {"type": "string"},
    "hasPart": {
      "type": "array",
      "minItems": 1,
      "items": {
        "oneOf": [
          {"$ref": "#/definitions/clip"},
          {"$ref": "#/definitions/mediaObject"}
        ]
      }
    },
    "potentialAction": {
      "type": "object",
      "required": ["@type", "target"],
      "properties": {
        "@type": {"type": "string", "enum": ["SeekToAction"]},
        "target": {"type": "string"},
        "startOffset-input": {"type": "string"}
      }
    }
  },
  "definitions": {
    "imageObject": {
      "type": "object",
      "required": ["@type", "url"],
      "properties": {
        "@type": {"type": "string", "enum": ["ImageObject"]},
        "url": {"type": "string", "format": "uri"},
        "width": {"type": "integer", "minimum": 1},
        "height": {"type": "integer", "minimum": 1},
        "encodingFormat": {"type": "string"}
      }
    },
    "mediaObject": {
      "type": "object",
      "required": ["@type", "contentUrl"],
      "properties": {
        "@type": {"type": "string", "enum": ["MediaObject"]},
        "contentUrl": {"type": "string", "format": "uri"},
        "encodingFormat": {"type": "string"},
        "contentSize": {"type": "string"},
        "width": {"type": "integer"},
        "height": {"type": "integer"}
      }
    },
    "clip": {
      "type": "object",
      "required": ["@type", "startOffset"],
      "properties": {
        "@type": {"type": "string", "enum": ["Clip"]},
        "name": {"type": "string"},
        "startOffset": {"type": "integer", "minimum": 0},
        "endOffset": {"type": "integer", "minimum": 0},
        "url": {"type": "string"}
      }
    }
  }
}`

// Validator validates assembled documents against their JSON schema.
type Validator struct {
	schemas  map[string]*gojsonschema.Schema // Compiled schemas by document type
	resolver *Resolver                       // Optional remote schema resolver
}

// NewValidator creates a validator with the built-in schemas compiled.
// Returns:
//   - *Validator: Initialized validator instance
//   - error: Any error that occurred compiling the built-in schemas
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}
	if err := v.loadSchema("VideoObject", videoObjectSchema); err != nil {
		return nil, fmt.Errorf("failed to load VideoObject schema: %w", err)
	}
	return v, nil
}

// SetResolver attaches a remote schema resolver. Published revisions
// supersede the built-in schema when the resolver can fetch them.
func (v *Validator) SetResolver(resolver *Resolver) {
	v.resolver = resolver
	if resolver == nil {
		return
	}
	for docType := range DocumentTypes {
		if remote, err := resolver.Schema(docType); err == nil && remote != "" {
			// Best effort: a broken published schema keeps the built-in one
			_ = v.loadSchema(docType, remote)
		}
	}
}

// loadSchema compiles and stores one schema.
// Parameters:
//   - docType: The document type (e.g. "VideoObject")
//   - schemaJSON: The JSON schema as a string
// Returns:
//   - error: Any error that occurred during schema compilation
func (v *Validator) loadSchema(docType, schemaJSON string) error {
	loader := gojsonschema.NewStringLoader(schemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", docType, err)
	}
	v.schemas[docType] = schema
	return nil
}

// Validate checks a document against the schema for its type.
// Parameters:
//   - docType: The document type (e.g. "VideoObject")
//   - doc: The assembled document
// Returns:
//   - []string: Human-readable findings, empty when the document is valid
//   - error: Infrastructure failure; findings are reported, not returned here
func (v *Validator) Validate(docType string, doc map[string]interface{}) ([]string, error) {
	if !DocumentTypes[docType] {
		return nil, fmt.Errorf("unsupported document type: %s", docType)
	}
	schema, exists := v.schemas[docType]
	if !exists {
		return nil, fmt.Errorf("schema not found for document type: %s", docType)
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}
	findings := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		findings = append(findings, desc.String())
	}
	return findings, nil
}
