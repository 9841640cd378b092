package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MaxMetadataBytes is the largest serialized metadata payload a vector row may carry.
const MaxMetadataBytes = 40000

// ContentHash returns a hex encoded BLAKE2b digest of data.
// Identical bytes always produce the same hash.
func ContentHash(data []byte) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RawSegment is one element produced by a document parser.
type RawSegment struct {
	Text     string
	Metadata map[string]any
}

// PageNumber returns the segment's page_number metadata, or 0 when absent
// or unparseable.
func (s RawSegment) PageNumber() int {
	v, ok := s.Metadata["page_number"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	}
	return 0
}

// Passage is a retrieval-sized chunk of document text.
type Passage struct {
	Text       string
	PageNumber int // Page of the first segment contributing to the passage
}

// VectorMetadata is the payload stored alongside every passage vector.
type VectorMetadata struct {
	Content    string `json:"content"`
	PageNumber int    `json:"page_number"`
}

// VectorStatus is the lifecycle state of a stored vector row.
type VectorStatus int

const (
	// VectorStatusActive rows are visible to search and listing.
	VectorStatusActive VectorStatus = iota + 1
	// VectorStatusInactive rows are soft deleted.
	VectorStatusInactive
	// VectorStatusStaged rows belong to an in-progress replace and are never visible.
	VectorStatusStaged
)

// String returns the storage representation of the status.
func (s VectorStatus) String() string {
	switch s {
	case VectorStatusActive:
		return "active"
	case VectorStatusInactive:
		return "inactive"
	case VectorStatusStaged:
		return "staged"
	}
	return "unknown"
}

// ParseVectorStatus converts a stored status string into a VectorStatus.
func ParseVectorStatus(s string) (VectorStatus, error) {
	switch s {
	case "active":
		return VectorStatusActive, nil
	case "inactive":
		return VectorStatusInactive, nil
	case "staged":
		return VectorStatusStaged, nil
	}
	return 0, fmt.Errorf("%w: vector status %q", ErrInvalidStatus, s)
}

// ProcessStatus tracks a document through ingestion.
type ProcessStatus int

const (
	// ProcessStatusUploaded documents have bytes stored but no vectors yet.
	ProcessStatusUploaded ProcessStatus = iota + 1
	// ProcessStatusProcessing documents have a run in flight.
	ProcessStatusProcessing
	// ProcessStatusProcessed documents completed their last run.
	ProcessStatusProcessed
	// ProcessStatusError documents failed their last run.
	ProcessStatusError
)

// String returns the storage representation of the status.
func (s ProcessStatus) String() string {
	switch s {
	case ProcessStatusUploaded:
		return "upload"
	case ProcessStatusProcessing:
		return "processing"
	case ProcessStatusProcessed:
		return "processed"
	case ProcessStatusError:
		return "error"
	}
	return "unknown"
}

// ParseProcessStatus converts a stored status string into a ProcessStatus.
func ParseProcessStatus(s string) (ProcessStatus, error) {
	switch s {
	case "upload":
		return ProcessStatusUploaded, nil
	case "processing":
		return ProcessStatusProcessing, nil
	case "processed":
		return ProcessStatusProcessed, nil
	case "error":
		return ProcessStatusError, nil
	}
	return 0, fmt.Errorf("%w: process status %q", ErrInvalidStatus, s)
}

// MarshalText implements encoding.TextMarshaler.
func (s ProcessStatus) MarshalText() ([]byte, error) {
	if err := ValidateProcessStatus(s); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ProcessStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseProcessStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Visibility controls who may find a document through summary search.
type Visibility int

const (
	VisibilityPrivate Visibility = iota + 1
	VisibilityPublic
	VisibilityLink
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	case VisibilityLink:
		return "link"
	}
	return "unknown"
}

// ParseVisibility converts a stored visibility string into a Visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "private":
		return VisibilityPrivate, nil
	case "public":
		return VisibilityPublic, nil
	case "link":
		return VisibilityLink, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVisibility, s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	if err := ValidateVisibility(v); err != nil {
		return nil, err
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Source types for DocumentMetadata.SourceType.
const (
	SourceTypeUploadFile = "upload-file"
	SourceTypeUploadText = "upload-text"
	SourceTypeLandpress  = "landpress"
)

// DocumentMetadata describes where a document came from.
type DocumentMetadata struct {
	SourceType     string         `json:"source_type"`
	SourceLink     string         `json:"source_link,omitempty"`
	SourceMetadata map[string]any `json:"source_metadata,omitempty"`
}

// Document is an uploaded file and the results of its last processing run.
type Document struct {
	ID            string           `json:"id"`
	Namespace     string           `json:"namespace"`
	Filename      string           `json:"filename"`
	ContentType   string           `json:"content_type"`
	ByteSize      int64            `json:"byte_size"`
	UploadedBy    string           `json:"uploaded_by"`
	UploadedAt    time.Time        `json:"uploaded_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Summary       string           `json:"summary"`
	SummaryVector []float32        `json:"summary_vector,omitempty"`
	Status        ProcessStatus    `json:"status"`
	Visibility    Visibility       `json:"visibility"`
	ContentHash   string           `json:"content_hash"`
	LastError     string           `json:"last_error,omitempty"`
	Metadata      DocumentMetadata `json:"metadata"`
}

// VectorRecord is one persisted passage vector. Vector is omitted by listings.
type VectorRecord struct {
	Namespace string
	Document  string
	VectorID  string
	BatchID   string
	Metadata  string
	Vector    []float32
	Status    VectorStatus
}

// QueryResult is one similarity search hit.
type QueryResult struct {
	Namespace  string
	Document   string
	VectorID   string
	Metadata   string
	Similarity float64 // 1 - cosine distance
}

// DecodeMetadata parses the result's metadata payload.
func (r *QueryResult) DecodeMetadata() (VectorMetadata, error) {
	var md VectorMetadata
	if r.Metadata == "" {
		return md, nil
	}
	err := json.Unmarshal([]byte(r.Metadata), &md)
	return md, err
}

// Checkpoint records how far a bulk job got so it can resume.
type Checkpoint struct {
	ProcessorType string    `json:"processor_type"`
	LastID        string    `json:"last_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DocumentMatch is a document ranked by summary vector similarity.
type DocumentMatch struct {
	Document   *Document
	Similarity float64
}
