package parser

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/docvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"text/plain", "text/plain"},
		{"text/plain; charset=utf-8", "text/plain"},
		{"Application/PDF", "application/pdf"},
		{"text/markdown;", "text/markdown"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MediaType(tt.in))
		})
	}
}

func TestIsPlainText(t *testing.T) {
	assert.True(t, IsPlainText("text/plain"))
	assert.True(t, IsPlainText("text/markdown; charset=utf-8"))
	assert.False(t, IsPlainText("text/html"))
	assert.False(t, IsPlainText("application/pdf"))
}

func TestPlainText(t *testing.T) {
	segments, err := PlainText{}.Parse(context.Background(), "doc", []byte("first line\nsecond line\n\nlast"), "text/plain")
	require.NoError(t, err)
	require.Len(t, segments, 4)
	assert.Equal(t, "first line", segments[0].Text)
	assert.Equal(t, "second line", segments[1].Text)
	assert.Equal(t, "", segments[2].Text)
	assert.Equal(t, "last", segments[3].Text)
	assert.Equal(t, 0, segments[0].PageNumber())
}

// fakeParser records the calls it receives.
type fakeParser struct {
	calls    int
	segments []core.RawSegment
}

func (f *fakeParser) Parse(context.Context, string, []byte, string) ([]core.RawSegment, error) {
	f.calls++
	return f.segments, nil
}

func TestRouter(t *testing.T) {
	fallback := &fakeParser{segments: []core.RawSegment{{Text: "from fallback"}}}
	router := NewRouter(fallback, nil)
	ctx := context.Background()

	segments, err := router.Parse(ctx, "doc", []byte("a\nb"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Len(t, segments, 2)
	assert.Zero(t, fallback.calls)

	segments, err = router.Parse(ctx, "doc", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", segments[0].Text)
	assert.Equal(t, 1, fallback.calls)

	_, err = router.Parse(ctx, "doc", []byte("x"), "image/png")
	assert.ErrorIs(t, err, core.ErrParse)
	assert.ErrorIs(t, err, ErrUnsupportedContentType)
}

func TestRouter_CustomSupportedTypes(t *testing.T) {
	router := NewRouter(nil, []string{"text/plain", "Application/PDF; q=1"})

	assert.True(t, router.Supports("text/plain"))
	assert.True(t, router.Supports("application/pdf"))
	assert.False(t, router.Supports("text/markdown"))
	assert.Equal(t, []string{"text/plain", "application/pdf"}, router.SupportedTypes())

	_, err := router.Parse(context.Background(), "doc", []byte("%PDF"), "application/pdf")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestUnstructured_Parse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/general/v0/general", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("unstructured-api-key"))

		file, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "doc-42", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, "%PDF-1.7", string(data))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"type": "Title", "text": "Introduction", "metadata": map[string]any{"page_number": 1}},
			{"type": "NarrativeText", "text": "Body text here.", "metadata": map[string]any{"page_number": 2}},
		})
	}))
	defer server.Close()

	parser := NewUnstructured(server.URL+"/", WithAPIKey("secret"), WithTimeout(5*time.Second))
	segments, err := parser.Parse(context.Background(), "doc-42", []byte("%PDF-1.7"), "application/pdf; charset=binary")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "Introduction", segments[0].Text)
	assert.Equal(t, 1, segments[0].PageNumber())
	assert.Equal(t, "Body text here.", segments[1].Text)
	assert.Equal(t, 2, segments[1].PageNumber())
}

func TestUnstructured_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file type not supported", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewUnstructured(server.URL).Parse(context.Background(), "doc", []byte("x"), "application/pdf")
	require.ErrorIs(t, err, core.ErrParse)
	assert.Contains(t, err.Error(), "file type not supported")
}

func TestUnstructured_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := NewUnstructured(server.URL).Parse(context.Background(), "doc", []byte("x"), "application/pdf")
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestUnstructured_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewUnstructured(url).Parse(context.Background(), "doc", []byte("x"), "application/pdf")
	assert.ErrorIs(t, err, core.ErrParse)
}
