// Package conformance provides conformance tests for the VSD implementation.
package conformance

import (
	"testing"
)

// TestConformance runs the full conformance test suite.
func TestConformance(t *testing.T) {
	// Create harness with default configuration
	cfg := Config{
		JWTIssuer:   "test-issuer",
		JWTAudience: "test-audience",
	}

	harness, err := NewHarness(cfg)
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}
	defer harness.Close()

	// Run conformance tests
	t.Run("Conformance", func(t *testing.T) {
		harness.RunConformanceTests(t)
	})

	// Run acceptance tests
	t.Run("Acceptance", func(t *testing.T) {
		harness.RunAcceptanceTests(t)
	})
}
