package gemini

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Model represents a Gemini model identifier.
type Model string

const (
	// === Gemini 2.x Family ===

	// ModelGemini2Flash Gemini 2.0 Flash – default workhorse model
	ModelGemini2Flash Model = "gemini-2.0-flash"

	// ModelGemini2FlashLite Gemini 2.0 Flash Lite – cheaper, faster variant
	ModelGemini2FlashLite Model = "gemini-2.0-flash-lite"

	// ModelGemini2FlashExp Gemini 2.0 Flash Experimental
	ModelGemini2FlashExp Model = "gemini-2.0-flash-exp"

	// ModelGemini2FlashThinkingExp Gemini 2.0 Flash Thinking Experimental
	ModelGemini2FlashThinkingExp Model = "gemini-2.0-flash-thinking-exp-01-21"

	// ModelGemini2ProExp Gemini 2.0 Pro Experimental
	ModelGemini2ProExp Model = "gemini-2.0-pro-exp-02-05"

	// ModelGemini2ProExp1206 Gemini 2 Experimental (December preview)
	ModelGemini2ProExp1206 Model = "gemini-exp-1206"

	// ModelGemini25ProPreview Gemini 2.5 Pro preview
	ModelGemini25ProPreview Model = "gemini-2.5-pro-preview-05-06"

	// === Gemini 1.x Family ===

	// ModelGemini15Pro Gemini 1.5 Pro
	ModelGemini15Pro Model = "gemini-1.5-pro"

	// ModelGemini15Flash Gemini 1.5 Flash
	ModelGemini15Flash Model = "gemini-1.5-flash"

	// ModelGemini15ProExp0827 Experimental Gemini 1.5 Pro (version 0827)
	ModelGemini15ProExp0827 Model = "gemini-1.5-pro-exp-0827"

	// ModelGemini15FlashExp0827 Experimental Gemini 1.5 Flash (version 0827)
	ModelGemini15FlashExp0827 Model = "gemini-1.5-flash-exp-0827"

	// ModelGemini15Flash8BExp0827 Experimental Gemini 1.5 Flash 8B (version 0827)
	ModelGemini15Flash8BExp0827 Model = "gemini-1.5-flash-8b-exp-0827"

	// ModelGemini10Pro Gemini 1.0 Pro – legacy model kept for compatibility
	ModelGemini10Pro Model = "gemini-1.0-pro"

	// === Gemma Family ===

	// ModelGemma2_2BIt Gemma 2 2B instruction-tuned
	ModelGemma2_2BIt Model = "gemma-2-2b-it"

	// ModelGemma2_9BIt Gemma 2 9B instruction-tuned
	ModelGemma2_9BIt Model = "gemma-2-9b-it"

	// ModelGemma2_27BIt Gemma 2 27B instruction-tuned
	ModelGemma2_27BIt Model = "gemma-2-27b-it"
)

// DefaultModel is used whenever no model has been configured.
const DefaultModel = ModelGemini2Flash

const (
	// DefaultBaseURL Default Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultAPIVersion Default REST API version
	DefaultAPIVersion = "v1beta"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 30 * time.Second
)

// ResourceName maps "gemini-2.0-flash" -> "models/gemini-2.0-flash".
// If the string already looks like a resource name ("models/..." or
// "tunedModels/..."), it is returned as-is.
func (m Model) ResourceName() string {
	s := strings.TrimSpace(string(m))
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "models/") || strings.HasPrefix(s, "tunedModels/") {
		return s
	}
	return "models/" + s
}

// KnownModels returns the model identifiers this package ships constants for.
// Any other value is treated as a custom model and sent to the API untouched.
func KnownModels() []Model {
	return []Model{
		ModelGemini2Flash,
		ModelGemini2FlashLite,
		ModelGemini2FlashExp,
		ModelGemini2FlashThinkingExp,
		ModelGemini2ProExp,
		ModelGemini2ProExp1206,
		ModelGemini25ProPreview,
		ModelGemini15Pro,
		ModelGemini15Flash,
		ModelGemini15ProExp0827,
		ModelGemini15FlashExp0827,
		ModelGemini15Flash8BExp0827,
		ModelGemini10Pro,
		ModelGemma2_2BIt,
		ModelGemma2_9BIt,
		ModelGemma2_27BIt,
	}
}

// Known reports whether m is one of the shipped model constants.
func (m Model) Known() bool {
	for _, k := range KnownModels() {
		if m == k {
			return true
		}
	}
	return false
}

// Config holds everything needed to talk to the Gemini API.
//
// Fields are populated from the environment (see ConfigFromEnv) and can be
// overridden programmatically with the chainable With* methods.
type Config struct {
	// APIKey authenticates every request (sent as the x-goog-api-key header).
	APIKey string `env:"GEMINI_API_KEY"`

	// BaseURL is the API endpoint (default: https://generativelanguage.googleapis.com).
	BaseURL string `env:"GEMINI_API_URL"`

	// APIVersion is the REST API version (default: v1beta).
	APIVersion string `env:"GEMINI_API_VERSION"`

	// Model is the generative model used for content generation.
	Model Model `env:"GEMINI_MODEL"`

	// Timeout bounds a whole non-streaming request, response body included.
	Timeout time.Duration `env:"GEMINI_TIMEOUT"`

	// ConnectTimeout bounds connection establishment only, so it also
	// applies to streaming requests.
	ConnectTimeout time.Duration `env:"GEMINI_CONNECT_TIMEOUT"`

	// DisableSSE switches streaming from the server-sent-events wire format
	// (?alt=sse) to the plain JSON-array body of streamGenerateContent.
	DisableSSE bool `env:"GEMINI_DISABLE_SSE"`
}

// ConfigFromEnv loads .env (if present) and builds a Config from the
// environment, applying defaults for everything left unset.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("gemini: parse environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.BaseURL = normalizeBaseURL(c.BaseURL)
	c.APIVersion = normalizeAPIVersion(c.APIVersion)
	if strings.TrimSpace(string(c.Model)) == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
}

func (c Config) validate() error {
	if len(strings.TrimSpace(c.APIKey)) < 10 {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(string(c.Model)) == "" {
		return fmt.Errorf("gemini: model must not be empty")
	}
	return nil
}

// VersionedURL returns "<base>/<version>", the prefix of every non-upload route.
func (c Config) VersionedURL() string {
	return normalizeBaseURL(c.BaseURL) + "/" + normalizeAPIVersion(c.APIVersion)
}

// UploadURL returns the media upload route used by the resumable file protocol.
func (c Config) UploadURL() string {
	return normalizeBaseURL(c.BaseURL) + "/upload/" + normalizeAPIVersion(c.APIVersion) + "/files"
}

func (c Config) WithAPIKey(apiKey string) Config {
	c.APIKey = apiKey
	return c
}

func (c Config) WithBaseURL(baseURL string) Config {
	c.BaseURL = normalizeBaseURL(baseURL)
	return c
}

func (c Config) WithAPIVersion(version string) Config {
	c.APIVersion = normalizeAPIVersion(version)
	return c
}

func (c Config) WithModel(model Model) Config {
	c.Model = model
	return c
}

func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

func (c Config) WithConnectTimeout(timeout time.Duration) Config {
	c.ConnectTimeout = timeout
	return c
}

func normalizeBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(s, "/")
}

func normalizeAPIVersion(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultAPIVersion
	}
	return strings.Trim(s, "/")
}
