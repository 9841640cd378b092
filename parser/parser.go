// Package parser turns uploaded document bytes into raw text segments.
//
// Plain text and markdown are split into lines locally. Every other
// supported content type is sent to an Unstructured API server, which
// returns page-tagged elements.
package parser

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/poiesic/docvec/core"
)

// ErrUnsupportedContentType indicates a content type outside the supported list.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Parser extracts raw segments from document bytes.
type Parser interface {
	// Parse returns the segments of data in document order.
	// Failures wrap core.ErrParse.
	Parse(ctx context.Context, docID string, data []byte, contentType string) ([]core.RawSegment, error)
}

// DefaultSupportedTypes lists the content types accepted by default.
var DefaultSupportedTypes = []string{
	"text/plain",
	"text/markdown",
	"text/html",
	"text/csv",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// MediaType strips parameters such as charset from a content type.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsPlainText reports whether contentType is parsed locally as lines of text.
func IsPlainText(contentType string) bool {
	switch MediaType(contentType) {
	case "text/plain", "text/markdown":
		return true
	}
	return false
}

// PlainText splits UTF-8 text into one segment per line.
type PlainText struct{}

var _ Parser = PlainText{}

// Parse splits data on newlines. Segments carry no metadata.
func (PlainText) Parse(_ context.Context, _ string, data []byte, _ string) ([]core.RawSegment, error) {
	lines := strings.Split(string(data), "\n")
	segments := make([]core.RawSegment, len(lines))
	for i, line := range lines {
		segments[i] = core.RawSegment{Text: line, Metadata: map[string]any{}}
	}
	return segments, nil
}

// Router dispatches on content type: plain text is handled locally and
// everything else goes to the fallback parser.
type Router struct {
	plain     PlainText
	fallback  Parser
	supported []string
}

var _ Parser = (*Router)(nil)

// NewRouter creates a Router. A nil or empty supported list uses
// DefaultSupportedTypes. fallback may be nil when only plain text is needed.
func NewRouter(fallback Parser, supported []string) *Router {
	if len(supported) == 0 {
		supported = DefaultSupportedTypes
	}
	normalized := make([]string, 0, len(supported))
	for _, ct := range supported {
		if ct = MediaType(ct); ct != "" {
			normalized = append(normalized, ct)
		}
	}
	return &Router{fallback: fallback, supported: normalized}
}

// Supports reports whether contentType may be uploaded.
func (r *Router) Supports(contentType string) bool {
	return slices.Contains(r.supported, MediaType(contentType))
}

// SupportedTypes returns the accepted content types.
func (r *Router) SupportedTypes() []string {
	return slices.Clone(r.supported)
}

// Parse routes data to the parser for its content type.
func (r *Router) Parse(ctx context.Context, docID string, data []byte, contentType string) ([]core.RawSegment, error) {
	if !r.Supports(contentType) {
		return nil, fmt.Errorf("%w: %w: %q", core.ErrParse, ErrUnsupportedContentType, contentType)
	}
	if IsPlainText(contentType) {
		return r.plain.Parse(ctx, docID, data, contentType)
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("%w: no parser configured for %q", core.ErrParse, contentType)
	}
	return r.fallback.Parse(ctx, docID, data, contentType)
}
