package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testAPIKey = "test-api-key-0123456789"

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := Config{
		APIKey:  testAPIKey,
		BaseURL: server.URL,
		Model:   ModelGemini2Flash,
	}
	return NewClient(cfg)
}

func userContext(text string) *Context {
	c := NewContext()
	c.PushMessage(RoleUser, text)
	return c
}

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var gotRequest GenerateContentRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRequest)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Paris"}],"role":"model"},"finishReason":"STOP"}]}`))
	})

	resp, err := client.GenerateContent(context.Background(), userContext("capital of France?"), nil)
	if err != nil {
		t.Fatalf("GenerateContent() error: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != testAPIKey {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
	if len(gotRequest.Contents) != 1 || gotRequest.Contents[0].Text() != "capital of France?" {
		t.Errorf("request contents = %+v", gotRequest.Contents)
	}
	if len(gotRequest.SafetySettings) != 4 {
		t.Errorf("request safety settings = %+v", gotRequest.SafetySettings)
	}
	if resp.Text() != "Paris" {
		t.Errorf("Text() = %q", resp.Text())
	}
}

func TestGenerateContentAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 400 || apiErr.Status != "INVALID_ARGUMENT" || apiErr.HTTPStatus != 400 {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestGenerateContentNonEnvelopeError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream overloaded"))
	})

	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("plain text body should not decode as *APIError: %v", err)
	}
}

func TestGenerateContentEmptyResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerateContentPromptBlocked(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"finishReason":"SAFETY"}],"promptFeedback":{"blockReason":"SAFETY"}}`))
	})

	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)

	var blocked *PromptBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected *PromptBlockedError, got %v", err)
	}
	if blocked.Reason != BlockReasonSafety {
		t.Errorf("Reason = %q", blocked.Reason)
	}
}

func TestGenerateContentAllCandidatesBlocked(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"finishReason":"RECITATION"}]}`))
	})

	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)
	if !errors.Is(err, ErrAllCandidatesBlocked) {
		t.Errorf("expected ErrAllCandidatesBlocked, got %v", err)
	}
}

func TestGenerateContentMissingKey(t *testing.T) {
	client := NewClient(Config{Model: ModelGemini2Flash})
	_, err := client.GenerateContent(context.Background(), userContext("hi"), nil)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestStreamGenerateContentSSE(t *testing.T) {
	var gotQuery string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}],\"role\":\"model\"}}]}\n\n"))
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"lo\"}],\"role\":\"model\"}}]}\n\n"))
	})

	stream, err := client.StreamGenerateContent(context.Background(), userContext("hi"), nil)
	if err != nil {
		t.Fatalf("StreamGenerateContent() error: %v", err)
	}
	defer stream.Close()

	if gotQuery != "alt=sse" {
		t.Errorf("query = %q, want alt=sse", gotQuery)
	}

	chunks, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text()+chunks[1].Text() != "Hello" {
		t.Errorf("aggregated text = %q", chunks[0].Text()+chunks[1].Text())
	}
}

func TestStreamGenerateContentJSONArray(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"candidates":[{"content":{"parts":[{"text":"one"}],"role":"model"}}]},
{"candidates":[{"content":{"parts":[{"text":"two"}],"role":"model"}}]}]`))
	})
	client.config.DisableSSE = true

	stream, err := client.StreamGenerateContent(context.Background(), userContext("hi"), nil)
	if err != nil {
		t.Fatalf("StreamGenerateContent() error: %v", err)
	}

	chunks, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text() != "one" || chunks[1].Text() != "two" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestStreamGenerateContentHTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.StreamGenerateContent(context.Background(), userContext("hi"), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != "RESOURCE_EXHAUSTED" {
		t.Errorf("Status = %q", apiErr.Status)
	}
}
