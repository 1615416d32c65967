package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemstream"
)

// maxResponseBytes bounds a non-streaming response body.
const maxResponseBytes = 16 * 1024 * 1024 // 16 MiB

// Client performs the HTTP calls of the Gemini API.
//
// One Client can serve many goroutines; it holds no conversation state.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient builds a Client from cfg, applying defaults for unset fields.
func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	// NOTE: http.Client.Timeout covers the whole request lifetime (including
	// reading resp.Body). For streaming requests, we rely on context
	// cancellation instead, so Timeout is left to 0 and the non-streaming
	// timeout is enforced per request.
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
	}
}

// WithLogger attaches an optional logger. The client logs request URLs and
// response statuses; a nil logger disables logging.
func (c *Client) WithLogger(logger *zap.SugaredLogger) *Client {
	c.logger = logger
	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// GenerateContent sends the conversation as a batch generateContent request
// and returns the parsed response.
//
// Zero-candidate responses are ErrEmptyResponse. Responses whose candidates
// all came back without content are *PromptBlockedError when the prompt
// feedback names a reason, ErrAllCandidatesBlocked otherwise.
func (c *Client) GenerateContent(ctx context.Context, conversation *Context, settings *Settings) (*GenerateContentResponse, error) {
	if err := c.config.validate(); err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("gemini: nil context")
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	url := c.endpoint("generateContent")
	resp, err := c.post(ctx, url, conversation.Build(settings))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}

	if c.logger != nil {
		c.logger.Infow("generateContent completed", "url", url, "status", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var result GenerateContentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}

	if len(result.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	blocked := true
	for _, candidate := range result.Candidates {
		if candidate.Content != nil {
			blocked = false
			break
		}
	}
	if blocked {
		if reason, ok := result.BlockReason(); ok {
			return nil, &PromptBlockedError{Reason: reason}
		}
		return nil, ErrAllCandidatesBlocked
	}

	return &result, nil
}

// StreamGenerateContent sends the conversation to streamGenerateContent and
// returns a typed stream of partial responses. The caller must Close it.
//
// The SSE wire format is used unless Config.DisableSSE selects the plain
// JSON-array body.
func (c *Client) StreamGenerateContent(ctx context.Context, conversation *Context, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	if err := c.config.validate(); err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, fmt.Errorf("gemini: nil context")
	}

	url := c.endpoint("streamGenerateContent")
	if !c.config.DisableSSE {
		url += "?alt=sse"
	}

	resp, err := c.post(ctx, url, conversation.Build(settings))
	if err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Infow("streamGenerateContent opened", "url", url, "status", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		_ = resp.Body.Close()
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	if c.config.DisableSSE {
		return gemstream.NewJSONArrayStream[GenerateContentResponse](resp.Body, settings.StreamMaxJSONSize()), nil
	}
	return gemstream.NewSSEStream[GenerateContentResponse](resp.Body), nil
}

func (c *Client) endpoint(verb string) string {
	return fmt.Sprintf("%s/%s:%s", c.config.VersionedURL(), c.config.Model.ResourceName(), verb)
}

func (c *Client) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: perform request: %w", err)
	}
	return resp, nil
}

// decodeAPIError turns a non-2xx body into a *APIError when it matches the
// Google error envelope, or a generic error otherwise.
func decodeAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && strings.TrimSpace(envelope.Error.Message) != "" {
		apiErr := envelope.Error
		apiErr.HTTPStatus = statusCode
		return &apiErr
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return fmt.Errorf("gemini: API returned %d: %s", statusCode, msg)
}
