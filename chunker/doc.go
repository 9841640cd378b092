// Package chunker turns parsed document segments into retrieval-sized passages.
//
// Segments are normalized, filtered, and appended to the current passage
// until it grows past the split length. When a passage is closed it borrows
// up to OverlapWords words from the passage before it and from the segment
// that follows, so retrieval context is not lost at boundaries. A short
// trailing passage is merged into its predecessor.
package chunker
