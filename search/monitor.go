package search

import "github.com/poiesic/docvec/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterVectorSearch(results []core.QueryResult)
	AfterDocumentLookup(documents map[string]*core.Document)
	Finish(hits []*Hit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                  {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)                 {}
func (n *noopMonitor) AfterVectorSearch(_ []core.QueryResult)          {}
func (n *noopMonitor) AfterDocumentLookup(_ map[string]*core.Document) {}
func (n *noopMonitor) Finish(_ []*Hit)                                 {}
