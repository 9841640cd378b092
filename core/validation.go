// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID, Namespace, Filename and ContentType must not be empty
//   - Namespace and UploadedBy must not contain NUL (index key terminator)
//   - Status and Visibility must be known values
//
// NOT validated (populated by processing):
//   - Summary and SummaryVector
//   - ContentHash
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}
	if doc.Namespace == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyNamespace)
	}
	if strings.ContainsRune(doc.Namespace, 0) || strings.ContainsRune(doc.UploadedBy, 0) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidName)
	}
	if doc.Filename == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFilename)
	}
	if doc.ContentType == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContentType)
	}
	if err := ValidateProcessStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := ValidateVisibility(doc.Visibility); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// ValidateProcessStatus validates that a ProcessStatus has a known value.
func ValidateProcessStatus(s ProcessStatus) error {
	if s < ProcessStatusUploaded || s > ProcessStatusError {
		return fmt.Errorf("%w: process status %d", ErrInvalidStatus, s)
	}
	return nil
}

// ValidateVectorStatus validates that a VectorStatus has a known value.
func ValidateVectorStatus(s VectorStatus) error {
	if s < VectorStatusActive || s > VectorStatusStaged {
		return fmt.Errorf("%w: vector status %d", ErrInvalidStatus, s)
	}
	return nil
}

// ValidateVisibility validates that a Visibility has a known value.
func ValidateVisibility(v Visibility) error {
	if v < VisibilityPrivate || v > VisibilityLink {
		return fmt.Errorf("%w: value %d", ErrInvalidVisibility, v)
	}
	return nil
}

// ValidateIdentifier checks that name is safe to splice into SQL as a table name.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}
