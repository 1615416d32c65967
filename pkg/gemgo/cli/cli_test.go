package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemini"
)

func decodeJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestParseCLI(t *testing.T) {
	cfg, err := parseCLI([]string{
		"--message", "hello",
		"--model", "gemini-2.5-pro-preview-05-06",
		"--temperature", "0.3",
		"--max-tokens", "128",
		"--timeout", "45s",
		"--loop",
		"--no-sse",
	})
	if err != nil {
		t.Fatalf("parseCLI() error: %v", err)
	}

	if cfg.Message != "hello" {
		t.Errorf("Message = %q", cfg.Message)
	}
	if cfg.Model != "gemini-2.5-pro-preview-05-06" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if !cfg.Temperature.IsSet() || cfg.Temperature.Value() != 0.3 {
		t.Errorf("Temperature = %+v", cfg.Temperature)
	}
	if !cfg.MaxTokens.IsSet() || cfg.MaxTokens.Value() != 128 {
		t.Errorf("MaxTokens = %+v", cfg.MaxTokens)
	}
	if !cfg.Timeout.IsSet() || cfg.Timeout.Value() != 45*time.Second {
		t.Errorf("Timeout = %+v", cfg.Timeout)
	}
	if !cfg.Loop.Enabled() || !cfg.NoSSE.Enabled() {
		t.Errorf("Loop/NoSSE = %+v/%+v", cfg.Loop, cfg.NoSSE)
	}
}

func TestParseCLIUnsetTriState(t *testing.T) {
	cfg, err := parseCLI([]string{"--message", "hi"})
	if err != nil {
		t.Fatalf("parseCLI() error: %v", err)
	}
	if cfg.Temperature.IsSet() || cfg.MaxTokens.IsSet() || cfg.Timeout.IsSet() {
		t.Error("unset flags should stay unset")
	}
	if cfg.Loop.Enabled() {
		t.Error("Loop should default to disabled")
	}
}

func TestParseCLIRejectsPositionalArgs(t *testing.T) {
	if _, err := parseCLI([]string{"--message", "hi", "stray"}); err == nil {
		t.Error("expected an error for a positional argument")
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"gemgo", "help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("Run(help) = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Errorf("help output: %q", stdout.String())
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"gemgo", "--version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("Run(--version) = %d, want 0", code)
	}
	if strings.TrimSpace(stdout.String()) != version {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRunRequiresMessageOrLoop(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := Run([]string{"gemgo"}, &stdout, &stderr); code != 2 {
		t.Fatalf("Run() without message = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "--message") {
		t.Errorf("stderr: %q", stderr.String())
	}
}

func TestRunOneShotStreams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Bonjour\"}],\"role\":\"model\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\" !\"}],\"role\":\"model\"}}]}\n\n"))
	}))
	t.Cleanup(server.Close)

	runner := NewRunner(WithConfigLoader(func() (gemini.Config, error) {
		return gemini.Config{
			APIKey:  "test-api-key-0123456789",
			BaseURL: server.URL,
		}, nil
	}))

	var stdout, stderr bytes.Buffer
	code := runner.Run([]string{"gemgo", "--message", "Salut"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Run() = %d, stderr: %s", code, stderr.String())
	}
	if got := stdout.String(); !strings.Contains(got, "Bonjour !") {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunLoopKeepsHistory(t *testing.T) {
	var requests int
	var lastContentCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Contents []struct {
				Role string `json:"role"`
			} `json:"contents"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		lastContentCount = len(req.Contents)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}],\"role\":\"model\"}}]}\n\n"))
	}))
	t.Cleanup(server.Close)

	stdin := strings.NewReader("first\nsecond\nquit\n")
	runner := NewRunner(
		WithStdin(stdin),
		WithConfigLoader(func() (gemini.Config, error) {
			return gemini.Config{
				APIKey:  "test-api-key-0123456789",
				BaseURL: server.URL,
			}, nil
		}),
	)

	var stdout, stderr bytes.Buffer
	if code := runner.Run([]string{"gemgo", "--loop"}, &stdout, &stderr); code != 0 {
		t.Fatalf("Run() = %d, stderr: %s", code, stderr.String())
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
	// Second request carries: first, ok, second.
	if lastContentCount != 3 {
		t.Errorf("second request contents = %d, want 3", lastContentCount)
	}
}

func TestRunConfigOverrides(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ok\"}],\"role\":\"model\"}}]}\n\n"))
	}))
	t.Cleanup(server.Close)

	runner := NewRunner(WithConfigLoader(func() (gemini.Config, error) {
		return gemini.Config{
			APIKey:  "test-api-key-0123456789",
			BaseURL: server.URL,
			Model:   gemini.ModelGemini2Flash,
		}, nil
	}))

	var stdout, stderr bytes.Buffer
	code := runner.Run([]string{"gemgo", "--message", "hi", "--model", "gemini-1.5-pro"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Run() = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(gotPath, "models/gemini-1.5-pro") {
		t.Errorf("path = %q, want the flag model", gotPath)
	}
}
