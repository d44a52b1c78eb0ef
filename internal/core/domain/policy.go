package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DocumentCategory groups MIME types for per-category size limits.
type DocumentCategory string

const (
	// CategoryText covers plain text formats.
	CategoryText DocumentCategory = "text"

	// CategoryDocument covers rendered document formats.
	CategoryDocument DocumentCategory = "document"

	// CategoryData covers structured data exports.
	CategoryData DocumentCategory = "data"
)

// mimeCategories is the upload allow-list. A MIME type outside this
// map is rejected, whatever the client declared.
var mimeCategories = map[string]DocumentCategory{
	"text/plain":         CategoryText,
	"text/markdown":      CategoryText,
	"text/html":          CategoryText,
	"text/csv":           CategoryData,
	"application/json":   CategoryData,
	"application/pdf":    CategoryDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": CategoryDocument,
	"message/rfc822": CategoryDocument,
}

// CategoryForMIME returns the size-limit category for a MIME type.
func CategoryForMIME(mimeType string) (DocumentCategory, bool) {
	c, ok := mimeCategories[mimeType]
	return c, ok
}

// UploadPolicy holds per-category size limits for uploads.
type UploadPolicy struct {
	// MaxBytes caps upload size per category.
	MaxBytes map[DocumentCategory]int64
}

// DefaultUploadPolicy returns the standard limits: 5 MiB for text,
// 10 MiB for data exports, 25 MiB for rendered documents.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxBytes: map[DocumentCategory]int64{
			CategoryText:     5 << 20,
			CategoryData:     10 << 20,
			CategoryDocument: 25 << 20,
		},
	}
}

// Validate checks an upload's effective MIME type and size against
// the policy. The filename must already be sanitised.
func (p UploadPolicy) Validate(mimeType string, size int64) error {
	category, ok := CategoryForMIME(mimeType)
	if !ok {
		return fmt.Errorf("%w: MIME type %q is not accepted", ErrUnsupportedType, mimeType)
	}
	if size <= 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidInput)
	}
	if limit, ok := p.MaxBytes[category]; ok && size > limit {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit for %s uploads",
			ErrInvalidInput, size, limit, category)
	}
	return nil
}

// SanitiseFilename reduces a client-supplied filename to a safe
// display name: path components and control characters stripped,
// length capped. The result is never used to build storage keys.
func SanitiseFilename(name string) (string, error) {
	// Strip any path, whichever separator convention the client used.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: unusable filename", ErrInvalidInput)
	}
	const maxFilename = 255
	if utf8.RuneCountInString(name) > maxFilename {
		runes := []rune(name)
		name = string(runes[:maxFilename])
	}
	return name, nil
}
