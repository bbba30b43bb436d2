package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("MICROSCAN_CONFIG", "")

	cfg := Load()
	if cfg.OpenRouterModel != "deepseek/deepseek-chat" {
		t.Fatalf("expected default model deepseek/deepseek-chat, got %q", cfg.OpenRouterModel)
	}
	if cfg.NATSSubject != "documents.extract" {
		t.Fatalf("expected default subject documents.extract, got %q", cfg.NATSSubject)
	}
	if cfg.MaxUploadBytes != 15<<20 {
		t.Fatalf("expected default upload limit 15MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20 rps, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_MODEL", "deepseek/deepseek-r1")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("API_RATE_LIMIT_RPS", "5")
	t.Setenv("MICROSCAN_CONFIG", "")

	cfg := Load()
	if cfg.OpenRouterModel != "deepseek/deepseek-r1" {
		t.Fatalf("expected model override, got %q", cfg.OpenRouterModel)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Fatalf("expected upload limit override, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected rate limit override, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadAppliesYAMLFileOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microscan.yaml")
	body := "openrouter_model: openai/gpt-4o-mini\napi_max_in_flight: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("OPENROUTER_MODEL", "deepseek/deepseek-chat")
	t.Setenv("MICROSCAN_CONFIG", path)

	cfg := Load()
	if cfg.OpenRouterModel != "openai/gpt-4o-mini" {
		t.Fatalf("expected file to win over env, got %q", cfg.OpenRouterModel)
	}
	if cfg.APIMaxInFlight != 8 {
		t.Fatalf("expected api_max_in_flight 8, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadIgnoresBrokenConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- nope"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("MICROSCAN_CONFIG", path)
	t.Setenv("API_PORT", "9999")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("expected env value to survive broken file, got %q", cfg.APIPort)
	}
}
