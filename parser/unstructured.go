package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/poiesic/docvec/core"
)

const (
	unstructuredPath      = "/general/v0/general"
	defaultParseTimeout   = 5 * time.Minute
	maxErrorBodyBytes     = 4096
	unstructuredAPIHeader = "unstructured-api-key"
)

// Unstructured calls an Unstructured API server to partition documents.
type Unstructured struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ Parser = (*Unstructured)(nil)

// UnstructuredOption configures an Unstructured parser.
type UnstructuredOption func(*Unstructured)

// WithAPIKey sets the key sent in the unstructured-api-key header.
func WithAPIKey(key string) UnstructuredOption {
	return func(u *Unstructured) {
		u.apiKey = key
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) UnstructuredOption {
	return func(u *Unstructured) {
		if client != nil {
			u.client = client
		}
	}
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(d time.Duration) UnstructuredOption {
	return func(u *Unstructured) {
		if d > 0 {
			u.client = &http.Client{Timeout: d}
		}
	}
}

// NewUnstructured creates a parser for the server at endpoint.
func NewUnstructured(endpoint string, opts ...UnstructuredOption) *Unstructured {
	u := &Unstructured{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: defaultParseTimeout},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// element is one partition returned by the server.
type element struct {
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Parse uploads data as a multipart file named after docID.
func (u *Unstructured) Parse(ctx context.Context, docID string, data []byte, contentType string) ([]core.RawSegment, error) {
	body, formType, err := multipartFile(docID, data, MediaType(contentType))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint+unstructuredPath, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")
	if u.apiKey != "" {
		req.Header.Set(unstructuredAPIHeader, u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%w: unstructured returned %s: %s", core.ErrParse, resp.Status, strings.TrimSpace(string(detail)))
	}

	var elements []element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("%w: decode unstructured response: %w", core.ErrParse, err)
	}

	segments := make([]core.RawSegment, len(elements))
	for i, el := range elements {
		segments[i] = core.RawSegment{Text: el.Text, Metadata: el.Metadata}
	}
	return segments, nil
}

func multipartFile(name string, data []byte, contentType string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
