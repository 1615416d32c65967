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

// Package gemini is a client SDK for the Gemini generative-language HTTP API.
//
// It builds generateContent request bodies from a conversation history
// (Context), sends them over HTTPS (Client / Session), and parses the JSON
// responses — batch or streamed — into the typed structures below.
package gemini

import (
	"encoding/base64"
	"strings"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is one element of a Content. Exactly one of the fields should be set;
// the API treats them as a union.
type Part struct {
	Text       string    `json:"text,omitempty"`
	InlineData *Blob     `json:"inlineData,omitempty"`
	FileData   *FileData `json:"fileData,omitempty"`
}

// TextPart wraps plain text into a Part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart wraps inline binary data into a Part.
func BlobPart(blob Blob) Part {
	return Part{InlineData: &blob}
}

// FilePart wraps an uploaded file handle into a Part.
func FilePart(data FileData) Part {
	return Part{FileData: &data}
}

// Content is a single conversation turn: a role plus one or more parts.
type Content struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Text concatenates the text parts of the content.
func (c *Content) Text() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Text == "" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// Blob carries inline binary data, base64 encoded on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// NewBlob base64-encodes data into a Blob.
func NewBlob(mimeType string, data []byte) Blob {
	return Blob{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// FileData references a previously uploaded file by URI.
type FileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

// FinishReason explains why the model stopped generating a candidate.
type FinishReason string

const (
	FinishReasonUnspecified           FinishReason = "FINISH_REASON_UNSPECIFIED"
	FinishReasonStop                  FinishReason = "STOP"
	FinishReasonMaxTokens             FinishReason = "MAX_TOKENS"
	FinishReasonSafety                FinishReason = "SAFETY"
	FinishReasonRecitation            FinishReason = "RECITATION"
	FinishReasonLanguage              FinishReason = "LANGUAGE"
	FinishReasonOther                 FinishReason = "OTHER"
	FinishReasonBlocklist             FinishReason = "BLOCKLIST"
	FinishReasonProhibitedContent     FinishReason = "PROHIBITED_CONTENT"
	FinishReasonSPII                  FinishReason = "SPII"
	FinishReasonMalformedFunctionCall FinishReason = "MALFORMED_FUNCTION_CALL"
)

// BlockReason explains why a whole prompt was rejected.
type BlockReason string

const (
	BlockReasonUnspecified       BlockReason = "BLOCK_REASON_UNSPECIFIED"
	BlockReasonSafety            BlockReason = "SAFETY"
	BlockReasonOther             BlockReason = "OTHER"
	BlockReasonBlocklist         BlockReason = "BLOCKLIST"
	BlockReasonProhibitedContent BlockReason = "PROHIBITED_CONTENT"
)

// SafetyRating is the per-category safety assessment attached to candidates
// and prompt feedback.
type SafetyRating struct {
	Category    string `json:"category,omitempty"`
	Probability string `json:"probability,omitempty"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content       *Content       `json:"content,omitempty"`
	FinishReason  FinishReason   `json:"finishReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
	TokenCount    int32          `json:"tokenCount,omitempty"`
	Index         int32          `json:"index,omitempty"`
}

// Blocked reports whether the candidate was suppressed for safety,
// recitation or prohibited-content reasons.
func (c Candidate) Blocked() bool {
	switch c.FinishReason {
	case FinishReasonSafety, FinishReasonRecitation, FinishReasonProhibitedContent:
		return true
	default:
		return false
	}
}

// Text returns the concatenated text of the candidate's content.
func (c Candidate) Text() string {
	return c.Content.Text()
}

// PromptFeedback reports prompt-level moderation results.
type PromptFeedback struct {
	BlockReason   BlockReason    `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// UsageMetadata is the token accounting attached to responses.
type UsageMetadata struct {
	PromptTokenCount        int32 `json:"promptTokenCount,omitempty"`
	CachedContentTokenCount int32 `json:"cachedContentTokenCount,omitempty"`
	CandidatesTokenCount    int32 `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         int32 `json:"totalTokenCount,omitempty"`
}

// GenerateContentResponse is the typed response of generateContent and of
// each streamed chunk of streamGenerateContent.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Text returns the text of the first candidate, or "" when there is none.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Text()
}

// Results returns the non-empty texts of all candidates.
func (r *GenerateContentResponse) Results() []string {
	if r == nil {
		return nil
	}
	var texts []string
	for _, c := range r.Candidates {
		if t := c.Text(); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// BlockReason returns the prompt-level block reason, if any.
func (r *GenerateContentResponse) BlockReason() (BlockReason, bool) {
	if r == nil || r.PromptFeedback == nil || r.PromptFeedback.BlockReason == "" {
		return "", false
	}
	return r.PromptFeedback.BlockReason, true
}

// InstructionContent is the role-less content shape expected by the
// systemInstruction request field.
type InstructionContent struct {
	Parts []Part `json:"parts"`
}

// GenerateContentRequest is the wire request of generateContent and
// streamGenerateContent.
type GenerateContentRequest struct {
	Contents          []Content           `json:"contents"`
	SafetySettings    []SafetySetting     `json:"safetySettings,omitempty"`
	GenerationConfig  *GenerationConfig   `json:"generationConfig,omitempty"`
	SystemInstruction *InstructionContent `json:"systemInstruction,omitempty"`
}
