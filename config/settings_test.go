package config

import (
	"os"
	"testing"

	"github.com/PrimeOccasion/cline/contextmgr"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewContextDefaults(t *testing.T) {
	// Empty values fall through to defaults in every env getter.
	for _, key := range []string{
		"CONTEXT_MAX_TOKENS", "CONTEXT_BASE_THRESHOLD", "CONTEXT_ALGORITHM",
		"CONTEXT_NON_DESTRUCTIVE", "CONTEXT_FALLBACK_KEEP_RECENT",
	} {
		t.Setenv(key, "")
	}

	settings, err := New("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def := contextmgr.DefaultConfig()
	if settings.Context.MaxContextTokens != def.MaxContextTokens {
		t.Errorf("expected default budget %d, got %d", def.MaxContextTokens, settings.Context.MaxContextTokens)
	}
	if settings.Context.Algorithm != "decision" {
		t.Errorf("expected default algorithm 'decision', got %q", settings.Context.Algorithm)
	}
	if settings.Context.NonDestructive {
		t.Error("expected non-destructive mode off by default")
	}
}

func TestNewContextFromEnvironment(t *testing.T) {
	t.Setenv("CONTEXT_MAX_TOKENS", "50000")
	t.Setenv("CONTEXT_ALGORITHM", "range")
	t.Setenv("CONTEXT_NON_DESTRUCTIVE", "true")

	settings, err := New("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Context.MaxContextTokens != 50000 {
		t.Errorf("expected budget 50000, got %d", settings.Context.MaxContextTokens)
	}
	if settings.Context.Algorithm != "range" {
		t.Errorf("expected algorithm 'range', got %q", settings.Context.Algorithm)
	}
	if !settings.Context.NonDestructive {
		t.Error("expected non-destructive mode on")
	}
}

func TestNewInvalidAlgorithm(t *testing.T) {
	t.Setenv("CONTEXT_ALGORITHM", "aggressive")

	_, err := New("anthropic")
	if err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestContextManagerConfigMapsAlgorithm(t *testing.T) {
	cfg := ContextConfig{Algorithm: "range", MaxContextTokens: 1000}
	mapped := cfg.ContextManagerConfig()
	if mapped.Algorithm != contextmgr.AlgorithmRange {
		t.Errorf("expected AlgorithmRange, got %v", mapped.Algorithm)
	}
	if mapped.MaxContextTokens != 1000 {
		t.Errorf("expected budget 1000, got %d", mapped.MaxContextTokens)
	}

	cfg.Algorithm = "decision"
	if cfg.ContextManagerConfig().Algorithm != contextmgr.AlgorithmDecision {
		t.Error("expected AlgorithmDecision")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", original)

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAPIKeyForUnknownProvider(t *testing.T) {
	_, err := APIKeyFor("unknown")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestModelFor(t *testing.T) {
	model, err := ModelFor("anthropic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model == "" {
		t.Error("expected non-empty model")
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	_, err := New("openai")
	if err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}
