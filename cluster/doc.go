// Package cluster selects representative passages from a document's
// embeddings.
//
// Vectors are grouped with k-means (k-means++ seeding from a fixed seed so
// runs are reproducible) and the vector closest to each centroid is chosen.
// The ingestion pipeline summarizes only these representatives, which keeps
// summary cost bounded regardless of document length.
package cluster
