// Copyright 2026 Benoit Pereira da Silva
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gemini

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemstream"
)

// Stream is the response stream produced by the streaming Send variants.
type Stream = gemstream.Stream[GenerateContentResponse]

// Session ties a Client to a conversation Context.
//
// Every Send* operation appends the outgoing turn to the history; the batch
// variants also append the model's reply on success, so the next request
// carries the whole exchange.
//
// Session is not safe for concurrent use.
type Session struct {
	client  *Client
	context *Context
}

// NewSession creates a Session with default settings and the provided API key.
// Remaining configuration (model, endpoints, timeouts) comes from the
// environment.
func NewSession(apiKey string) (*Session, error) {
	return NewSessionBuilder().APIKey(apiKey).Build()
}

// SessionBuilder builds a Session with custom configuration.
type SessionBuilder struct {
	config  Config
	context *Context
	logger  *zap.SugaredLogger

	haveConfig bool
}

// NewSessionBuilder returns a builder with everything left to defaults.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// Config replaces the whole configuration at once.
func (b *SessionBuilder) Config(cfg Config) *SessionBuilder {
	b.config = cfg
	b.haveConfig = true
	return b
}

// APIKey sets the API key for the session.
func (b *SessionBuilder) APIKey(apiKey string) *SessionBuilder {
	b.config.APIKey = apiKey
	return b
}

// Model sets the Gemini model used by the session.
func (b *SessionBuilder) Model(model Model) *SessionBuilder {
	b.config.Model = model
	return b
}

// CustomModel sets a model name this package ships no constant for.
func (b *SessionBuilder) CustomModel(model string) *SessionBuilder {
	b.config.Model = Model(model)
	return b
}

// BaseURL overrides the API endpoint.
func (b *SessionBuilder) BaseURL(baseURL string) *SessionBuilder {
	b.config.BaseURL = baseURL
	return b
}

// Timeout bounds a whole non-streaming request.
func (b *SessionBuilder) Timeout(timeout time.Duration) *SessionBuilder {
	b.config.Timeout = timeout
	return b
}

// ConnectTimeout bounds connection establishment.
func (b *SessionBuilder) ConnectTimeout(timeout time.Duration) *SessionBuilder {
	b.config.ConnectTimeout = timeout
	return b
}

// Context sets the initial conversation history.
func (b *SessionBuilder) Context(c *Context) *SessionBuilder {
	b.context = c
	return b
}

// Logger attaches an optional logger to the session's client.
func (b *SessionBuilder) Logger(logger *zap.SugaredLogger) *SessionBuilder {
	b.logger = logger
	return b
}

// Build assembles the Session. When no API key has been set, the environment
// (including .env) is consulted, whether or not the rest of the configuration
// was set explicitly; a key missing from both is ErrMissingAPIKey.
func (b *SessionBuilder) Build() (*Session, error) {
	cfg := b.config
	if !b.haveConfig && strings.TrimSpace(cfg.APIKey) == "" {
		envCfg, err := ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		// Explicit builder values win over the environment.
		envCfg.APIKey = firstNonEmpty(cfg.APIKey, envCfg.APIKey)
		envCfg.BaseURL = firstNonEmpty(cfg.BaseURL, envCfg.BaseURL)
		envCfg.Model = Model(firstNonEmpty(string(cfg.Model), string(envCfg.Model)))
		if cfg.Timeout > 0 {
			envCfg.Timeout = cfg.Timeout
		}
		if cfg.ConnectTimeout > 0 {
			envCfg.ConnectTimeout = cfg.ConnectTimeout
		}
		cfg = envCfg
	}
	// An explicit Config with no key still falls back to the environment for
	// the key alone.
	if strings.TrimSpace(cfg.APIKey) == "" {
		if envCfg, err := ConfigFromEnv(); err == nil {
			cfg.APIKey = envCfg.APIKey
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	conversation := b.context
	if conversation == nil {
		conversation = NewContext()
	}

	return &Session{
		client:  NewClient(cfg).WithLogger(b.logger),
		context: conversation,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Client returns the session's HTTP client.
func (s *Session) Client() *Client {
	return s.client
}

// Context returns the session's conversation history.
func (s *Session) Context() *Context {
	return s.context
}

// SendMessage appends a text turn, performs a batch request and returns the
// response. The model's reply is appended back into the history.
func (s *Session) SendMessage(ctx context.Context, message string, role Role, settings *Settings) (*GenerateContentResponse, error) {
	s.context.PushMessage(role, message)
	return s.send(ctx, settings)
}

// SendFile appends a file turn, performs a batch request and returns the
// response. The model's reply is appended back into the history.
func (s *Session) SendFile(ctx context.Context, data FileData, role Role, settings *Settings) (*GenerateContentResponse, error) {
	s.context.PushFile(role, data)
	return s.send(ctx, settings)
}

// SendBlob appends an inline-data turn, performs a batch request and returns
// the response. The model's reply is appended back into the history.
func (s *Session) SendBlob(ctx context.Context, blob Blob, role Role, settings *Settings) (*GenerateContentResponse, error) {
	s.context.PushBlob(role, blob)
	return s.send(ctx, settings)
}

// SendMessageWithFile appends a combined text+file turn, performs a batch
// request and returns the response. The model's reply is appended back into
// the history.
func (s *Session) SendMessageWithFile(ctx context.Context, message string, data FileData, role Role, settings *Settings) (*GenerateContentResponse, error) {
	s.context.PushMessageWithFile(role, message, data)
	return s.send(ctx, settings)
}

// SendMessageWithBlob appends a combined text+blob turn, performs a batch
// request and returns the response. The model's reply is appended back into
// the history.
func (s *Session) SendMessageWithBlob(ctx context.Context, message string, blob Blob, role Role, settings *Settings) (*GenerateContentResponse, error) {
	s.context.PushMessageWithBlob(role, message, blob)
	return s.send(ctx, settings)
}

// SendMessageStream appends a text turn and returns the streamed response.
// The history is not extended with the reply; callers aggregating the stream
// can push it themselves via Context().PushMessage.
func (s *Session) SendMessageStream(ctx context.Context, message string, role Role, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	s.context.PushMessage(role, message)
	return s.client.StreamGenerateContent(ctx, s.context, settings)
}

// SendFileStream appends a file turn and returns the streamed response.
func (s *Session) SendFileStream(ctx context.Context, data FileData, role Role, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	s.context.PushFile(role, data)
	return s.client.StreamGenerateContent(ctx, s.context, settings)
}

// SendBlobStream appends an inline-data turn and returns the streamed response.
func (s *Session) SendBlobStream(ctx context.Context, blob Blob, role Role, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	s.context.PushBlob(role, blob)
	return s.client.StreamGenerateContent(ctx, s.context, settings)
}

// SendMessageWithFileStream appends a combined text+file turn and returns the
// streamed response.
func (s *Session) SendMessageWithFileStream(ctx context.Context, message string, data FileData, role Role, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	s.context.PushMessageWithFile(role, message, data)
	return s.client.StreamGenerateContent(ctx, s.context, settings)
}

// SendMessageWithBlobStream appends a combined text+blob turn and returns the
// streamed response.
func (s *Session) SendMessageWithBlobStream(ctx context.Context, message string, blob Blob, role Role, settings *Settings) (*gemstream.Stream[GenerateContentResponse], error) {
	s.context.PushMessageWithBlob(role, message, blob)
	return s.client.StreamGenerateContent(ctx, s.context, settings)
}

func (s *Session) send(ctx context.Context, settings *Settings) (*GenerateContentResponse, error) {
	response, err := s.client.GenerateContent(ctx, s.context, settings)
	if err != nil {
		return nil, err
	}
	text := response.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}
	s.context.PushMessage(RoleModel, text)
	return response, nil
}
