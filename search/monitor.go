package search

import "github.com/poiesic/coursefinder/core"

// SearchMonitor provides hooks to observe the search pipeline.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string, mode core.SearchMode)
	AfterPreprocess(rewritten string, instructions *core.Instructions)
	AfterExtraction(attrs core.AttributeSet)
	AfterCoarseFilter(survivors []*core.CourseRecord)
	AfterPreciseMatch(survivors []*core.CourseRecord)
	AfterScoring(scores map[string]core.ScoreRecord)
	AfterPostFilter(remaining []*core.CourseRecord)
	FailedOver(err error)
	Finish(result *core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchMode)                  {}
func (n *noopMonitor) AfterPreprocess(_ string, _ *core.Instructions)     {}
func (n *noopMonitor) AfterExtraction(_ core.AttributeSet)                {}
func (n *noopMonitor) AfterCoarseFilter(_ []*core.CourseRecord)           {}
func (n *noopMonitor) AfterPreciseMatch(_ []*core.CourseRecord)           {}
func (n *noopMonitor) AfterScoring(_ map[string]core.ScoreRecord)         {}
func (n *noopMonitor) AfterPostFilter(_ []*core.CourseRecord)             {}
func (n *noopMonitor) FailedOver(_ error)                                 {}
func (n *noopMonitor) Finish(_ *core.SearchResult)                        {}
