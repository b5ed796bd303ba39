package search

import "github.com/poiesic/semblance/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps during a search,
// such as how many ranked candidates were considered before filtering.
type SearchMonitor interface {
	Start(referenceId core.ID)
	AfterRank(ranked []Scored)
	CandidateConsidered(id core.ID)
	CandidateRejected(id core.ID, reason string)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.ID)                       {}
func (n *noopMonitor) AfterRank(_ []Scored)                  {}
func (n *noopMonitor) CandidateConsidered(_ core.ID)         {}
func (n *noopMonitor) CandidateRejected(_ core.ID, _ string) {}
func (n *noopMonitor) Finish(_ *Result)                      {}
