package pg

import "testing"

func TestNormalizeConfigKeepsWeightsForPartialConfig(t *testing.T) {
	// The daemons build a Config with connection fields only.
	cfg := normalizeConfig(&Config{
		Host:      "db.internal",
		Port:      5433,
		User:      "support",
		Password:  "secret",
		DBName:    "support_assistant",
		SSLMode:   "require",
		Dimension: 1536,
		TableName: "support_chunks",
	})

	if cfg.VectorWeight != 0.7 || cfg.KeywordWeight != 0.3 {
		t.Fatalf("unset fusion weights must fall back to defaults, got %v/%v",
			cfg.VectorWeight, cfg.KeywordWeight)
	}
	if cfg.Host != "db.internal" || cfg.Port != 5433 || cfg.SSLMode != "require" {
		t.Errorf("connection fields must survive normalization: %+v", cfg)
	}
}

func TestNormalizeConfigPreservesExplicitWeights(t *testing.T) {
	cfg := normalizeConfig(&Config{VectorWeight: 0.9, KeywordWeight: 0.1})
	if cfg.VectorWeight != 0.9 || cfg.KeywordWeight != 0.1 {
		t.Errorf("explicit weights overwritten: %v/%v", cfg.VectorWeight, cfg.KeywordWeight)
	}

	// Keyword-only fusion is a valid tuning, not an unset config.
	cfg = normalizeConfig(&Config{KeywordWeight: 1.0})
	if cfg.VectorWeight != 0 || cfg.KeywordWeight != 1.0 {
		t.Errorf("single-signal weights overwritten: %v/%v", cfg.VectorWeight, cfg.KeywordWeight)
	}
}

func TestNormalizeConfigNil(t *testing.T) {
	cfg := normalizeConfig(nil)
	def := DefaultConfig()
	if *cfg != *def {
		t.Errorf("nil config must yield defaults: %+v", cfg)
	}
}

func TestNormalizeConfigDoesNotMutateInput(t *testing.T) {
	in := &Config{Host: "db.internal"}
	normalizeConfig(in)
	if in.VectorWeight != 0 || in.Port != 0 {
		t.Errorf("input config mutated: %+v", in)
	}
}

func TestEncodeVector(t *testing.T) {
	if got := encodeVector([]float32{1, -0.5, 0.25}); got != "[1,-0.5,0.25]" {
		t.Errorf("encodeVector: %q", got)
	}
	if got := encodeVector(nil); got != "[]" {
		t.Errorf("empty vector: %q", got)
	}
}
