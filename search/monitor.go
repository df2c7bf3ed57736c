package search

import "github.com/fred-agent/knowledge-flow/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps during a query.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterVectorSearch(hits []*core.ScoredChunk)
	DroppedUnretrievable(uid core.UID)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor.
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)         {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ScoredChunk) {}
func (n *noopMonitor) DroppedUnretrievable(_ core.UID)         {}
func (n *noopMonitor) Finish(_ []*Result)                      {}
