package gemini

import (
	"testing"
	"time"
)

func TestModelResourceName(t *testing.T) {
	tests := []struct {
		model Model
		want  string
	}{
		{ModelGemini2Flash, "models/gemini-2.0-flash"},
		{ModelGemini15Pro, "models/gemini-1.5-pro"},
		{ModelGemini15ProExp0827, "models/gemini-1.5-pro-exp-0827"},
		{ModelGemma2_27BIt, "models/gemma-2-27b-it"},
		{Model("models/gemini-1.5-flash"), "models/gemini-1.5-flash"},
		{Model("tunedModels/my-tuned"), "tunedModels/my-tuned"},
		{Model("  gemini-1.0-pro  "), "models/gemini-1.0-pro"},
		{Model(""), ""},
	}
	for _, tt := range tests {
		if got := tt.model.ResourceName(); got != tt.want {
			t.Errorf("ResourceName(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestModelKnown(t *testing.T) {
	for _, m := range KnownModels() {
		if !m.Known() {
			t.Errorf("expected %q to be known", m)
		}
	}
	if Model("gemini-99-ultra").Known() {
		t.Error("unexpected known custom model")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.APIVersion != DefaultAPIVersion {
		t.Errorf("APIVersion = %q, want %q", cfg.APIVersion, DefaultAPIVersion)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.Timeout != DefaultTimeout || cfg.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("timeouts = %v/%v, want %v/%v", cfg.Timeout, cfg.ConnectTimeout, DefaultTimeout, DefaultConnectTimeout)
	}
}

func TestConfigURLs(t *testing.T) {
	cfg := Config{BaseURL: "https://example.com/", APIVersion: "/v1beta/"}

	if got, want := cfg.VersionedURL(), "https://example.com/v1beta"; got != want {
		t.Errorf("VersionedURL() = %q, want %q", got, want)
	}
	if got, want := cfg.UploadURL(), "https://example.com/upload/v1beta/files"; got != want {
		t.Errorf("UploadURL() = %q, want %q", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Model: DefaultModel}
	if err := cfg.validate(); err != ErrMissingAPIKey {
		t.Errorf("validate() with no key = %v, want ErrMissingAPIKey", err)
	}
	cfg.APIKey = "short"
	if err := cfg.validate(); err != ErrMissingAPIKey {
		t.Errorf("validate() with short key = %v, want ErrMissingAPIKey", err)
	}
	cfg.APIKey = "test-api-key-0123456789"
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() = %v, want nil", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key-0123456789")
	t.Setenv("GEMINI_API_URL", "https://example.com/")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-flash")
	t.Setenv("GEMINI_TIMEOUT", "45s")
	t.Setenv("GEMINI_DISABLE_SSE", "true")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() error: %v", err)
	}
	if cfg.APIKey != "test-api-key-0123456789" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Model != ModelGemini15Flash {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if !cfg.DisableSSE {
		t.Error("DisableSSE = false, want true")
	}
}

func TestConfigWithOverrides(t *testing.T) {
	cfg := Config{}
	cfg = cfg.WithAPIKey("test-api-key-0123456789").
		WithBaseURL("https://proxy.example.com/").
		WithAPIVersion("v1").
		WithModel(ModelGemini25ProPreview).
		WithTimeout(time.Minute)

	if cfg.BaseURL != "https://proxy.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.APIVersion != "v1" {
		t.Errorf("APIVersion = %q", cfg.APIVersion)
	}
	if cfg.Model != ModelGemini25ProPreview {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Timeout != time.Minute {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}
