package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_TAX_RATE", "")
	t.Setenv("SUGGESTION_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port = %s, want 8080", cfg.Port)
	}
	if cfg.DefaultTaxRate != 0 {
		t.Fatalf("tax rate = %v, want 0", cfg.DefaultTaxRate)
	}
	if cfg.SuggestionTTLSeconds != 20 {
		t.Fatalf("suggestion ttl = %d, want 20", cfg.SuggestionTTLSeconds)
	}
}

func TestLoadRejectsOutOfRangeTaxRate(t *testing.T) {
	t.Setenv("DEFAULT_TAX_RATE", "1.5")

	cfg := Load()
	if cfg.DefaultTaxRate != 0 {
		t.Fatalf("tax rate = %v, want 0 for out-of-range input", cfg.DefaultTaxRate)
	}
}
