package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Budget = BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Classifier.Provider = "gemini-native" }},
		{"unknown response format", func(c *Config) { c.Classifier.ResponseFormat = "xml" }},
		{"temperature too high", func(c *Config) { c.Classifier.Temperature = 3 }},
		{"negative limit", func(c *Config) { c.Budget.DailyTokenLimit = -1 }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }},
		{"negative db", func(c *Config) { c.Database.DB = -1 }},
		{"cache without database", func(c *Config) { c.Cache.Enabled = true }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_MissingAPIKeyAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Classifier.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("missing api key must be reported per run, not at load: %v", err)
	}
}

func TestValidate_CacheWithDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = true
	cfg.Database.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Classifier.Provider != ProviderOpenAI || cfg.Classifier.Model != "gpt-4o-mini" {
		t.Errorf("unexpected classifier defaults: %+v", cfg.Classifier)
	}
	if cfg.Batch.Size != 50 {
		t.Errorf("expected Batch.Size=50, got %d", cfg.Batch.Size)
	}
	if cfg.Batch.MaxKeywords != 5000 {
		t.Errorf("expected MaxKeywords=5000, got %d", cfg.Batch.MaxKeywords)
	}
	if cfg.Batch.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.Batch.MaxAttempts)
	}
	if cfg.Batch.BackoffBaseMs != 2000 {
		t.Errorf("expected BackoffBaseMs=2000, got %d", cfg.Batch.BackoffBaseMs)
	}
	if cfg.Batch.InterBatchDelayMs != 200 {
		t.Errorf("expected InterBatchDelayMs=200, got %d", cfg.Batch.InterBatchDelayMs)
	}
	if cfg.Cache.TTLHours != 168 {
		t.Errorf("expected TTLHours=168, got %d", cfg.Cache.TTLHours)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Classifier: ClassifierConfig{Provider: ProviderAnthropic},
		Batch:      BatchConfig{Size: 10, InterBatchDelayMs: -1},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Classifier.Model != "claude-3-5-haiku-latest" {
		t.Errorf("expected provider-specific model, got %q", cfg.Classifier.Model)
	}
	if cfg.Batch.Size != 10 {
		t.Errorf("expected Batch.Size=10, got %d", cfg.Batch.Size)
	}
	if cfg.Batch.InterBatchDelayMs != -1 {
		t.Errorf("negative delay must be kept, got %d", cfg.Batch.InterBatchDelayMs)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("KWS_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("key: ${KWS_TEST_KEY}\nurl: ${KWS_TEST_MISSING:-http://localhost}\nempty: ${KWS_TEST_MISSING}")))
	want := "key: secret\nurl: http://localhost\nempty: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: 9090
classifier:
  provider: ollama
  base_url: ${KWS_TEST_OLLAMA:-http://localhost:11434}
batch:
  size: 25
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unit.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Classifier.Provider != ProviderOllama {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Classifier.BaseURL != "http://localhost:11434" {
		t.Errorf("base_url = %q", cfg.Classifier.BaseURL)
	}
	if cfg.Batch.Size != 25 || cfg.Batch.MaxKeywords != 5000 {
		t.Errorf("batch = %+v", cfg.Batch)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("does-not-exist"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("default env = %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("env = %q", GetEnv())
	}
}
