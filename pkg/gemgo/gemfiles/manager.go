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

// Package gemfiles manages uploads to the Gemini files API.
//
// Files are uploaded once through the resumable upload protocol and cached by
// the SHA-256 digest of their content, so repeated attachments of the same
// bytes reuse the server-side handle until it nears expiration.
package gemfiles

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemini"
)

const (
	// expiryMargin is how close to its expiration a cached handle may be
	// before we stop reusing it.
	expiryMargin = 10 * time.Minute

	// State polling after finalize: up to pollAttempts GETs, pollInterval apart.
	pollAttempts = 4
	pollInterval = 3 * time.Second

	maxUploadResponseBytes = 1024 * 1024
)

// Manager caches uploaded file handles by content hash.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	files map[string]*File

	config     gemini.Config
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewManager builds a Manager sharing cfg with the client that will consume
// the uploaded handles.
func NewManager(cfg gemini.Config) *Manager {
	return &Manager{
		files:      make(map[string]*File),
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// WithLogger attaches an optional logger; nil disables logging.
func (m *Manager) WithLogger(logger *zap.SugaredLogger) *Manager {
	m.logger = logger
	return m
}

// AddFile uploads the file at path (or reuses a cached upload of the same
// content) and returns the attachment handle. The MIME type is derived from
// the file extension.
func (m *Manager) AddFile(ctx context.Context, path string) (gemini.FileData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gemini.FileData{}, fmt.Errorf("gemfiles: read %s: %w", path, err)
	}
	mimeType, err := MIMETypeForPath(path)
	if err != nil {
		return gemini.FileData{}, err
	}
	return m.AddBytes(ctx, filepath.Base(path), data, mimeType)
}

// AddBytes uploads data under the given display name (or reuses a cached
// upload of the same content) and returns the attachment handle.
func (m *Manager) AddBytes(ctx context.Context, name string, data []byte, mimeType string) (gemini.FileData, error) {
	digest := sha256.Sum256(data)
	hash := hex.EncodeToString(digest[:])

	if fd, ok := m.lookup(ctx, hash); ok {
		return fd, nil
	}

	file, err := m.upload(ctx, name, data, mimeType)
	if err != nil {
		return gemini.FileData{}, err
	}

	m.mu.Lock()
	m.files[hash] = file
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Infow("file uploaded", "name", file.Name, "displayName", name, "bytes", len(data))
	}
	return file.Data(), nil
}

// Contains reports whether a non-stale handle is cached for hash
// (the lower-case hex SHA-256 of the content).
func (m *Manager) Contains(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	file, ok := m.files[hash]
	if !ok {
		return false
	}
	return time.Now().Add(expiryMargin).Before(file.ExpiresAt())
}

// Hashes returns the content hashes currently cached.
func (m *Manager) Hashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	hashes := make([]string, 0, len(m.files))
	for h := range m.files {
		hashes = append(hashes, h)
	}
	return hashes
}

// lookup returns the cached handle for hash when it is still comfortably
// before expiration. A stale entry is evicted and deleted server-side.
func (m *Manager) lookup(ctx context.Context, hash string) (gemini.FileData, bool) {
	m.mu.Lock()
	file, ok := m.files[hash]
	if ok && !time.Now().Add(expiryMargin).Before(file.ExpiresAt()) {
		delete(m.files, hash)
		m.mu.Unlock()
		// Best effort: the server reaps expired files on its own anyway.
		_ = m.deleteRemote(ctx, file)
		return gemini.FileData{}, false
	}
	m.mu.Unlock()

	if !ok {
		return gemini.FileData{}, false
	}
	if m.logger != nil {
		m.logger.Infow("file cache hit", "name", file.Name, "hash", hash)
	}
	return file.Data(), true
}

// FetchList pages through the server-side file listing and re-seeds the
// cache by content hash, so already-uploaded files survive process restarts.
func (m *Manager) FetchList(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}

	var fetched []*File
	pageToken := ""
	for {
		listURL := m.config.VersionedURL() + "/files"
		if pageToken != "" {
			query := url.Values{"pageToken": {pageToken}}
			listURL += "?" + query.Encode()
		}

		body, err := m.do(ctx, http.MethodGet, listURL, nil, nil)
		if err != nil {
			return err
		}

		var page struct {
			Files         []*File `json:"files,omitempty"`
			NextPageToken string  `json:"nextPageToken,omitempty"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return fmt.Errorf("gemfiles: decode file list: %w", err)
		}

		fetched = append(fetched, page.Files...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, file := range fetched {
		hash := normalizeHash(file.SHA256Hash)
		if hash == "" {
			continue
		}
		m.files[hash] = file
	}
	return nil
}

// Delete removes the cached entry for hash and deletes the file server-side.
// A miss is a no-op.
func (m *Manager) Delete(ctx context.Context, hash string) error {
	m.mu.Lock()
	file, ok := m.files[hash]
	delete(m.files, hash)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.deleteRemote(ctx, file)
}

// Clear removes every cached entry, deleting each file server-side.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	files := make([]*File, 0, len(m.files))
	for _, f := range m.files {
		files = append(files, f)
	}
	m.files = make(map[string]*File)
	m.mu.Unlock()

	for _, f := range files {
		if err := m.deleteRemote(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// upload runs the resumable upload protocol: reserve an upload URL, send the
// bytes in one finalizing chunk, then poll until the file is ACTIVE.
func (m *Manager) upload(ctx context.Context, name string, data []byte, mimeType string) (*File, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	startBody, err := json.Marshal(map[string]any{
		"file": map[string]any{"display_name": name},
	})
	if err != nil {
		return nil, fmt.Errorf("gemfiles: marshal upload start: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.UploadURL(), bytes.NewReader(startBody))
	if err != nil {
		return nil, fmt.Errorf("gemfiles: create upload start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", m.config.APIKey)
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemfiles: upload start: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxUploadResponseBytes))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemfiles: upload start returned %d", resp.StatusCode)
	}

	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return nil, fmt.Errorf("gemfiles: X-Goog-Upload-URL header not found")
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gemfiles: create upload request: %w", err)
	}
	req.Header.Set("Content-Length", strconv.Itoa(len(data)))
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	resp, err = m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemfiles: upload: %w", err)
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxUploadResponseBytes))
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("gemfiles: read upload response: %w", readErr)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemfiles: upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var finalized struct {
		File *File `json:"file"`
	}
	if err := json.Unmarshal(body, &finalized); err != nil || finalized.File == nil {
		return nil, fmt.Errorf("gemfiles: file data not found in upload response")
	}

	file, err := m.pollUntilActive(ctx, finalized.File)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// pollUntilActive waits for the server to finish processing the file.
func (m *Manager) pollUntilActive(ctx context.Context, file *File) (*File, error) {
	url := m.config.VersionedURL() + "/" + file.Name

	for attempt := 0; ; attempt++ {
		body, err := m.do(ctx, http.MethodGet, url, nil, nil)
		if err != nil {
			return nil, err
		}

		var state File
		if err := json.Unmarshal(body, &state); err != nil {
			return nil, fmt.Errorf("gemfiles: decode file state: %w", err)
		}

		switch state.State {
		case FileStateActive:
			return &state, nil
		case FileStateFailed:
			msg := "file processing failed"
			if state.Error != nil && state.Error.Message != "" {
				msg = state.Error.Message
			}
			return nil, fmt.Errorf("gemfiles: %s", msg)
		case FileStateProcessing:
			// Keep waiting below.
		default:
			return nil, fmt.Errorf("gemfiles: unknown file state %q", state.State)
		}

		if attempt >= pollAttempts-1 {
			return nil, fmt.Errorf("gemfiles: file processing timeout")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (m *Manager) deleteRemote(ctx context.Context, file *File) error {
	if file == nil || file.Name == "" {
		return nil
	}
	url := m.config.VersionedURL() + "/" + file.Name
	if _, err := m.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return err
	}
	if m.logger != nil {
		m.logger.Infow("file deleted", "name", file.Name)
	}
	return nil
}

func (m *Manager) do(ctx context.Context, method, url string, body io.Reader, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("gemfiles: create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("x-goog-api-key", m.config.APIKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemfiles: perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("gemfiles: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemfiles: %s %s returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

func (m *Manager) validate() error {
	if strings.TrimSpace(m.config.APIKey) == "" {
		return gemini.ErrMissingAPIKey
	}
	return nil
}

// normalizeHash maps the server's base64-encoded sha256Hash to the lower-case
// hex digests used as cache keys. Values that already look like hex are kept.
func normalizeHash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil && len(decoded) == sha256.Size {
		return hex.EncodeToString(decoded)
	}
	if len(s) == hex.EncodedLen(sha256.Size) {
		return strings.ToLower(s)
	}
	return s
}
