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

import "errors"

// Processing errors
var (
	// ErrParse indicates the document parser could not produce segments.
	ErrParse = errors.New("document parse failed")

	// ErrEmbedding indicates an embedding call failed. The whole batch is discarded.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorageConnectivity indicates the vector store could not be reached,
	// even after a reconnect attempt.
	ErrStorageConnectivity = errors.New("vector storage unreachable")

	// ErrMetadataTooLarge indicates a serialized vector metadata payload
	// exceeds MaxMetadataBytes.
	ErrMetadataTooLarge = errors.New("vector metadata too large")

	// ErrClusterInputEmpty indicates representative selection received no vectors.
	ErrClusterInputEmpty = errors.New("no vectors to cluster")

	// ErrLengthMismatch indicates parallel slices have different lengths.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrDimensionMismatch indicates vectors of differing dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyID indicates a required identifier is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyNamespace indicates the Namespace field is empty.
	ErrEmptyNamespace = errors.New("namespace cannot be empty")

	// ErrInvalidName indicates a namespace or uploader contains a NUL byte.
	ErrInvalidName = errors.New("name cannot contain NUL")

	// ErrEmptyFilename indicates the Filename field is empty.
	ErrEmptyFilename = errors.New("filename cannot be empty")

	// ErrEmptyContentType indicates the ContentType field is empty.
	ErrEmptyContentType = errors.New("content type cannot be empty")

	// ErrInvalidStatus indicates an unknown process or vector status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidVisibility indicates an unknown visibility value.
	ErrInvalidVisibility = errors.New("invalid visibility")

	// ErrInvalidIdentifier indicates a SQL identifier failed validation.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)
