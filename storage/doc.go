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


// Package storage provides the storage abstraction layer for docvec.
//
// Three kinds of state are kept, each behind its own interface so backends
// can be swapped independently:
//
//   - DocumentRepository: document records and their processing status
//     (implemented by storage/badger)
//   - VectorIndex: passage vectors with namespace/document scoping and
//     cosine similarity search (implemented by storage/vectordb over
//     PostgreSQL+pgvector or SQLite)
//   - BlobStore: raw uploaded bytes (implemented by storage/minio and
//     storage/bolt)
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return concrete types that
// satisfy these interfaces, with a compile-time assertion next to each type:
//
//	var _ storage.VectorIndex = (*Index)(nil)
//
// # Vector Lifecycle
//
// Vector rows are never visible to search unless they are active. Deleting a
// document's vectors marks them inactive; replacing them writes the new set
// as staged rows and flips both sets in a single transaction, so a failed
// run leaves the previous vectors searchable.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
