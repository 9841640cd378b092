// Package ingestion turns uploaded documents into searchable passage vectors.
//
// A Pipeline run takes one document through these steps:
//   - fetch its bytes from the blob store and parse them into segments
//   - chunk the segments into overlapping passages
//   - embed every passage on a bounded worker pool (fail-fast)
//   - cluster the embeddings and summarize the passage nearest each centroid
//   - embed the combined summary
//   - swap the document's vectors in the index in one step
//   - record the outcome on the document
//
// Runs never return processing failures to the caller. The document ends in
// the processed or error state and, on error, its previously indexed
// vectors remain searchable.
package ingestion
