// Package model defines the clipboard Entry data structure and validation.
// Entries are the core data unit in CopyPasta - each one is a single
// clipboard submission pushed by one of a user's devices and relayed to
// the others.
package model

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	// Image formats registered for validity checks (decoder registration)
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Content type constants define the accepted clipboard payload kinds.
// These values are part of the wire protocol and must match what the
// native clients send.
const (
	ContentTypeText  = "text"
	ContentTypeRich  = "rich"
	ContentTypeImage = "image"
)

// Entry represents one clipboard submission stored for a user.
// The version is strictly increasing per user and orders entries;
// ClientID identifies the submitting device and is used only for
// loop-back suppression during long polls.
type Entry struct {
	// ID is the storage row id (surrogate key, not exposed on the wire)
	ID int64 `json:"-"`

	// UserID is the owning user (scoping key, not exposed on the wire)
	UserID int64 `json:"-"`

	// ContentType is one of "text", "rich" or "image"
	ContentType string `json:"content_type"`

	// Content is the opaque body: plain text, HTML, or a
	// data-URL-prefixed base64 image
	Content string `json:"content"`

	// Metadata is an opaque JSON string stored verbatim; clients
	// typically place a timestamp and user agent inside
	Metadata string `json:"metadata"`

	// CreatedAt is the RFC3339 creation timestamp
	CreatedAt string `json:"created_at"`

	// Version is the per-user monotonic version assigned at insert
	Version int64 `json:"version"`

	// ClientID is the opaque submitter identifier (may be empty)
	ClientID string `json:"client_id"`
}

// ValidContentType reports whether t is an accepted content type.
func ValidContentType(t string) bool {
	switch t {
	case ContentTypeText, ContentTypeRich, ContentTypeImage:
		return true
	}
	return false
}

// ValidateContent checks a clipboard payload before it reaches storage.
// richLimit is the maximum byte length for rich (HTML) content.
//
// Rules per content type:
//   - text: must be non-empty after trimming whitespace
//   - rich: byte length must not exceed richLimit
//   - image: must decode as base64 (after an optional data URL prefix)
//     and the decoded bytes must parse as a known image format
func ValidateContent(contentType, content string, richLimit int64) error {
	switch contentType {
	case ContentTypeText:
		if strings.TrimSpace(content) == "" {
			return ErrEmptyContent
		}
	case ContentTypeRich:
		if int64(len(content)) > richLimit {
			return ErrContentTooLarge
		}
		if strings.TrimSpace(content) == "" {
			return ErrEmptyContent
		}
	case ContentTypeImage:
		if err := validateImage(content); err != nil {
			return err
		}
	default:
		return ErrInvalidContentType
	}
	return nil
}

// validateImage checks that content is base64 image data.
// The decoded bytes are parsed only far enough to confirm a known
// format header; they are never stored - the original string is.
func validateImage(content string) error {
	raw := stripDataURLPrefix(content)
	if raw == "" {
		return ErrInvalidImage
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return ErrInvalidImage
	}

	// DecodeConfig parses the header of any registered format
	// (PNG, JPEG, GIF) without decoding pixel data.
	if _, _, err := image.DecodeConfig(bytes.NewReader(decoded)); err != nil {
		return ErrInvalidImage
	}
	return nil
}

// stripDataURLPrefix removes a "data:<mime>;base64," prefix if present.
// Clients send images either as bare base64 or as a full data URL.
func stripDataURLPrefix(content string) string {
	if !strings.HasPrefix(content, "data:") {
		return content
	}
	idx := strings.Index(content, ";base64,")
	if idx == -1 {
		return ""
	}
	return content[idx+len(";base64,"):]
}
