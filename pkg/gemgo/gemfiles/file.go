package gemfiles

import (
	"time"

	"github.com/benoit-pereira-da-silva/gemgo/pkg/gemgo/gemini"
)

// Possible File.State values.
const (
	FileStateActive     = "ACTIVE"
	FileStateProcessing = "PROCESSING"
	FileStateFailed     = "FAILED"
)

// Status is the error detail attached to files whose processing failed.
type Status struct {
	Code    int32  `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// VideoMetadata is attached to uploaded video files once processed.
type VideoMetadata struct {
	VideoDuration string `json:"videoDuration,omitempty"`
}

// File is the server-side file resource of the Gemini files API.
// Timestamps are RFC 3339 strings as delivered on the wire.
type File struct {
	Name           string         `json:"name"`
	URI            string         `json:"uri"`
	DisplayName    string         `json:"displayName,omitempty"`
	MIMEType       string         `json:"mimeType,omitempty"`
	SizeBytes      string         `json:"sizeBytes,omitempty"`
	CreateTime     string         `json:"createTime,omitempty"`
	UpdateTime     string         `json:"updateTime,omitempty"`
	ExpirationTime string         `json:"expirationTime,omitempty"`
	SHA256Hash     string         `json:"sha256Hash,omitempty"`
	State          string         `json:"state,omitempty"`
	Error          *Status        `json:"error,omitempty"`
	VideoMetadata  *VideoMetadata `json:"videoMetadata,omitempty"`
}

// ExpiresAt parses the expiration timestamp. The zero time is returned when
// the server sent none or it does not parse.
func (f *File) ExpiresAt() time.Time {
	if f == nil || f.ExpirationTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, f.ExpirationTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Data returns the attachment handle to reference this file in a message.
func (f *File) Data() gemini.FileData {
	return gemini.FileData{
		MIMEType: f.MIMEType,
		FileURI:  f.URI,
	}
}
