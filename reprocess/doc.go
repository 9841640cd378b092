// Package reprocess runs the ingestion pipeline over many stored documents,
// typically to retry failures or to rebuild vectors after a model change.
//
// Documents are visited in ID order in batches. After each batch the last
// visited ID is saved as a checkpoint, so an interrupted run resumes where
// it stopped.
package reprocess
