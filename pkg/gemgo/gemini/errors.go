package gemini

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when no usable GEMINI_API_KEY is available.
var ErrMissingAPIKey = errors.New("gemini: invalid or missing GEMINI_API_KEY")

// ErrEmptyResponse is returned when the API answers successfully but carries
// no candidate (or no text where text was required).
var ErrEmptyResponse = errors.New("gemini: empty API response")

// ErrAllCandidatesBlocked is returned when every candidate of a response came
// back without content and the prompt feedback names no block reason.
var ErrAllCandidatesBlocked = errors.New("gemini: all response candidates were blocked")

// APIError is the Google error envelope ({"error":{code,message,status}})
// returned on non-2xx responses.
type APIError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`

	// HTTPStatus is the HTTP status code of the response that carried the
	// envelope. It usually matches Code but the API does not guarantee it.
	HTTPStatus int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: API error %d: %s (%s)", e.Code, e.Message, e.Status)
}

// PromptBlockedError is returned when the prompt itself was rejected and the
// prompt feedback names the reason.
type PromptBlockedError struct {
	Reason BlockReason
}

func (e *PromptBlockedError) Error() string {
	return fmt.Sprintf("gemini: prompt blocked: %s", e.Reason)
}
