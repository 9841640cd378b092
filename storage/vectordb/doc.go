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

// Package vectordb implements storage.VectorIndex on a SQL table.
//
// One table holds the vectors of a single dimensionality. Rows carry a
// namespace, a document ID, a unique vector ID, a batch ID, a JSON metadata
// payload, the vector itself and a status:
//
//	active    visible to listing and search
//	inactive  soft deleted, removed by PurgeInactive
//	staged    written by an in-progress replace, never visible
//
// Two dialects are supported. Postgres stores vectors in a pgvector column
// and ranks with the <=> operator. SQLite stores the pgvector text form and
// ranks with a registered cosine_distance function, which makes it suitable
// for single-node deployments and tests.
//
// Every statement runs on a handle that has just passed a "SELECT 1 + 1"
// probe. A failed probe closes the handle and asks the Connector for a new
// one before the statement runs.
package vectordb
