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


// Package search answers retrieval queries over indexed documents.
//
// The Searcher embeds a query with the same model used during ingestion and
// ranks stored vectors by cosine similarity. Three entry points exist:
//   - SearchPassages ranks passages within a namespace, optionally one document
//   - SearchDocuments ranks passages of an explicit set of documents and
//     attaches the source document's details to each hit
//   - SearchSummaries ranks whole documents by their summary vectors
//
// Passage hits whose text contains every non stop-word of the query are
// flagged as verbatim matches.
package search
