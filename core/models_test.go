package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestContentHash(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		same bool
	}{
		{name: "same content produces same hash", a: []byte("test content"), b: []byte("test content"), same: true},
		{name: "empty input", a: nil, b: []byte{}, same: true},
		{name: "different content", a: []byte("alpha"), b: []byte("beta"), same: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := ContentHash(tt.a)
			h2 := ContentHash(tt.b)
			if len(h1) != 32 {
				t.Errorf("ContentHash() length = %d, want 32", len(h1))
			}
			if (h1 == h2) != tt.same {
				t.Errorf("ContentHash() equality = %v, want %v", h1 == h2, tt.same)
			}
		})
	}
}

func TestRawSegmentPageNumber(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     int
	}{
		{name: "missing", metadata: nil, want: 0},
		{name: "int", metadata: map[string]any{"page_number": 3}, want: 3},
		{name: "float from json", metadata: map[string]any{"page_number": float64(7)}, want: 7},
		{name: "json number", metadata: map[string]any{"page_number": json.Number("12")}, want: 12},
		{name: "numeric string", metadata: map[string]any{"page_number": "4"}, want: 4},
		{name: "garbage string", metadata: map[string]any{"page_number": "four"}, want: 0},
		{name: "unexpected type", metadata: map[string]any{"page_number": []int{1}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := RawSegment{Text: "x", Metadata: tt.metadata}
			if got := seg.PageNumber(); got != tt.want {
				t.Errorf("PageNumber() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVectorStatusRoundTrip(t *testing.T) {
	for _, s := range []VectorStatus{VectorStatusActive, VectorStatusInactive, VectorStatusStaged} {
		parsed, err := ParseVectorStatus(s.String())
		if err != nil {
			t.Fatalf("ParseVectorStatus(%q) error: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseVectorStatus(%q) = %v, want %v", s.String(), parsed, s)
		}
	}

	if _, err := ParseVectorStatus("deleted"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseVectorStatus(deleted) error = %v, want ErrInvalidStatus", err)
	}
}

func TestProcessStatusStrings(t *testing.T) {
	want := map[ProcessStatus]string{
		ProcessStatusUploaded:   "upload",
		ProcessStatusProcessing: "processing",
		ProcessStatusProcessed:  "processed",
		ProcessStatusError:      "error",
	}
	for status, s := range want {
		if status.String() != s {
			t.Errorf("%d.String() = %q, want %q", status, status.String(), s)
		}
		parsed, err := ParseProcessStatus(s)
		if err != nil || parsed != status {
			t.Errorf("ParseProcessStatus(%q) = %v, %v", s, parsed, err)
		}
	}
}

func TestDocumentJSON(t *testing.T) {
	doc := &Document{
		ID:          "doc-1",
		Namespace:   "ns",
		Filename:    "a.txt",
		ContentType: "text/plain",
		Status:      ProcessStatusProcessed,
		Visibility:  VisibilityPublic,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if raw["status"] != "processed" {
		t.Errorf("status = %v, want processed", raw["status"])
	}
	if raw["visibility"] != "public" {
		t.Errorf("visibility = %v, want public", raw["visibility"])
	}

	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded.Status != ProcessStatusProcessed || decoded.Visibility != VisibilityPublic {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDocumentJSON_InvalidStatus(t *testing.T) {
	doc := &Document{ID: "doc-1", Visibility: VisibilityPublic}
	if _, err := json.Marshal(doc); err == nil {
		t.Error("Marshal with zero status should fail")
	}
}

func TestQueryResultDecodeMetadata(t *testing.T) {
	r := &QueryResult{Metadata: `{"content":"hello","page_number":2}`}
	md, err := r.DecodeMetadata()
	if err != nil {
		t.Fatalf("DecodeMetadata error: %v", err)
	}
	if md.Content != "hello" || md.PageNumber != 2 {
		t.Errorf("DecodeMetadata() = %+v", md)
	}

	empty := &QueryResult{}
	md, err = empty.DecodeMetadata()
	if err != nil || md.Content != "" {
		t.Errorf("empty DecodeMetadata() = %+v, %v", md, err)
	}
}
