package core

import (
	"errors"
	"testing"
)

func validDocument() *Document {
	return &Document{
		ID:          "7f0c1c1e-2a9b-4a43-9c43-3d7d4e6b1f10",
		Namespace:   "default",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Status:      ProcessStatusUploaded,
		Visibility:  VisibilityPrivate,
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		nilDoc  bool
		wantErr error
	}{
		{name: "valid document", mutate: func(d *Document) {}, wantErr: nil},
		{name: "valid without summary", mutate: func(d *Document) { d.Summary = "" }, wantErr: nil},
		{name: "nil document", nilDoc: true, wantErr: ErrInvalidDocument},
		{name: "empty id", mutate: func(d *Document) { d.ID = "" }, wantErr: ErrEmptyID},
		{name: "empty namespace", mutate: func(d *Document) { d.Namespace = "" }, wantErr: ErrEmptyNamespace},
		{name: "NUL in namespace", mutate: func(d *Document) { d.Namespace = "a\x00b" }, wantErr: ErrInvalidName},
		{name: "NUL in uploader", mutate: func(d *Document) { d.UploadedBy = "bob\x00" }, wantErr: ErrInvalidName},
		{name: "colon in namespace", mutate: func(d *Document) { d.Namespace = "tenant:other" }, wantErr: nil},
		{name: "empty filename", mutate: func(d *Document) { d.Filename = "" }, wantErr: ErrEmptyFilename},
		{name: "empty content type", mutate: func(d *Document) { d.ContentType = "" }, wantErr: ErrEmptyContentType},
		{name: "zero status", mutate: func(d *Document) { d.Status = 0 }, wantErr: ErrInvalidStatus},
		{name: "unknown visibility", mutate: func(d *Document) { d.Visibility = 42 }, wantErr: ErrInvalidVisibility},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc *Document
			if !tt.nilDoc {
				doc = validDocument()
				tt.mutate(doc)
			}
			err := ValidateDocument(doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("ValidateDocument() error = %v, should wrap ErrInvalidDocument", err)
			}
		})
	}
}

func TestValidateVectorStatus(t *testing.T) {
	for _, s := range []VectorStatus{VectorStatusActive, VectorStatusInactive, VectorStatusStaged} {
		if err := ValidateVectorStatus(s); err != nil {
			t.Errorf("ValidateVectorStatus(%v) error = %v", s, err)
		}
	}
	if err := ValidateVectorStatus(0); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ValidateVectorStatus(0) error = %v, want ErrInvalidStatus", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		ident string
		valid bool
	}{
		{"default table", "vectors_1536", true},
		{"leading underscore", "_private", true},
		{"mixed case", "DocVectors", true},
		{"empty", "", false},
		{"leading digit", "1vectors", false},
		{"injection", "vectors; DROP TABLE x", false},
		{"quoted", `"vectors"`, false},
		{"dash", "doc-vectors", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.ident)
			if tt.valid && err != nil {
				t.Errorf("ValidateIdentifier(%q) error = %v", tt.ident, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidIdentifier) {
				t.Errorf("ValidateIdentifier(%q) error = %v, want ErrInvalidIdentifier", tt.ident, err)
			}
		})
	}
}
