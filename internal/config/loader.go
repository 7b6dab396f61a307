package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default tuning values, applied when the YAML omits a knob.
const (
	DefaultPageSize                  = 1000
	DefaultEmbeddingDimensions       = 384
	DefaultLexicalRejectThreshold    = 82.0
	DefaultEnsembleRejectThreshold   = 70.0
	DefaultVectorMatchThreshold      = 0.35
	DefaultVectorMatchCount          = 5
	DefaultSemanticRPCTimeoutSeconds = 3.0
	DefaultResultCacheSize           = 5000
)

// Load reads the YAML configuration file at path, applies defaults and
// environment overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// environment overrides, and validates the result. Useful in tests where
// configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Store.PageSize <= 0 {
		cfg.Store.PageSize = DefaultPageSize
	}
	if cfg.Store.EmbeddingDimensions <= 0 {
		cfg.Store.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "openai"
	}

	v := &cfg.Verification
	if v.LexicalRejectThreshold <= 0 {
		v.LexicalRejectThreshold = DefaultLexicalRejectThreshold
	}
	if v.EnsembleRejectThreshold <= 0 {
		v.EnsembleRejectThreshold = DefaultEnsembleRejectThreshold
	}
	if v.VectorMatchThreshold <= 0 {
		v.VectorMatchThreshold = DefaultVectorMatchThreshold
	}
	if v.VectorMatchCount <= 0 {
		v.VectorMatchCount = DefaultVectorMatchCount
	}
	if v.SemanticRPCTimeoutSeconds <= 0 {
		v.SemanticRPCTimeoutSeconds = DefaultSemanticRPCTimeoutSeconds
	}
	if v.ResultCacheSize <= 0 {
		v.ResultCacheSize = DefaultResultCacheSize
	}
}

// ApplyEnv overrides tuning knobs and credentials from the environment.
// Unset or malformed variables leave the config value unchanged.
func ApplyEnv(cfg *Config) {
	envString("POSTGRES_DSN", &cfg.Store.PostgresDSN)
	envString("EMBEDDINGS_API_KEY", &cfg.Embeddings.APIKey)

	v := &cfg.Verification
	envFloat("LEXICAL_REJECT_THRESHOLD", &v.LexicalRejectThreshold)
	envFloat("ENSEMBLE_REJECT_THRESHOLD", &v.EnsembleRejectThreshold)
	envFloat("VECTOR_MATCH_THRESHOLD", &v.VectorMatchThreshold)
	envInt("VECTOR_MATCH_COUNT", &v.VectorMatchCount)
	envFloat("SEMANTIC_RPC_TIMEOUT_SECONDS", &v.SemanticRPCTimeoutSeconds)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Store.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("store.postgres_dsn is required (or set POSTGRES_DSN)"))
	}
	switch cfg.Embeddings.Provider {
	case "openai", "hf":
	default:
		errs = append(errs, fmt.Errorf("embeddings.provider %q is invalid; valid values: openai, hf", cfg.Embeddings.Provider))
	}

	v := cfg.Verification
	if v.LexicalRejectThreshold < 0 || v.LexicalRejectThreshold > 100 {
		errs = append(errs, fmt.Errorf("verification.lexical_reject_threshold must be in [0, 100]"))
	}
	if v.EnsembleRejectThreshold < 0 || v.EnsembleRejectThreshold > 100 {
		errs = append(errs, fmt.Errorf("verification.ensemble_reject_threshold must be in [0, 100]"))
	}
	if v.VectorMatchThreshold < -1 || v.VectorMatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("verification.vector_match_threshold must be in [-1, 1]"))
	}

	return errors.Join(errs...)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
