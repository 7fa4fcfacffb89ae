// Package validate decides whether a candidate file may be uploaded.
//
// The client runs these checks before any network call as a convenience;
// the server runs the same checks again and is the authority.
package validate

import (
	"fmt"
	"mime"
	"strings"
)

// MaxFileSize is the upload ceiling in bytes (100MB).
const MaxFileSize int64 = 100 * 1024 * 1024

// AllowedTypes lists the MIME types accepted for upload.
var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/zip",
	"application/x-rar-compressed",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(AllowedTypes))
	for _, t := range AllowedTypes {
		m[t] = true
	}
	return m
}()

// Reason classifies a rejection.
type Reason string

const (
	ReasonTooLarge        Reason = "too_large"
	ReasonUnsupportedType Reason = "unsupported_type"
)

// Rejection is returned when a file fails validation.
type Rejection struct {
	Reason   Reason
	Size     int64
	MIMEType string
}

func (r *Rejection) Error() string {
	switch r.Reason {
	case ReasonTooLarge:
		return "file too large: maximum size is 100MB"
	case ReasonUnsupportedType:
		if r.MIMEType == "" {
			return "unsupported type"
		}
		return fmt.Sprintf("unsupported type: %s", r.MIMEType)
	default:
		return string(r.Reason)
	}
}

// Check accepts or rejects a file by its size and reported MIME type.
// Size is checked first.
func Check(size int64, mimeType string) error {
	if size > MaxFileSize {
		return &Rejection{Reason: ReasonTooLarge, Size: size, MIMEType: mimeType}
	}
	if !IsAllowedType(mimeType) {
		return &Rejection{Reason: ReasonUnsupportedType, Size: size, MIMEType: mimeType}
	}
	return nil
}

// IsAllowedType reports whether mimeType, ignoring parameters, is in AllowedTypes.
func IsAllowedType(mimeType string) bool {
	return allowed[BaseType(mimeType)]
}

// BaseType strips parameters and normalises case: "Text/Plain; charset=utf-8" -> "text/plain".
func BaseType(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
