// Package queue supplies the scheduler's candidate cases and the
// aggregate statistics shown alongside a run. Sources are external
// collaborators: the scheduler only ever asks for the next candidate
// and treats a nil result as exhaustion.
package queue

import "context"

// Candidate is one case eligible for the processing loop, together with
// the update that should be posted against it.
type Candidate struct {
	CaseID      string
	AddressID   string
	AddressText string
	Content     string
}

// Source supplies candidates one at a time. Next returns (nil, nil)
// when the queue is exhausted.
type Source interface {
	Next(ctx context.Context) (*Candidate, error)
}

// Totals are the aggregate counts a statistics source can supply for
// display alongside a run.
type Totals struct {
	PendingCases   int
	ProcessedCases int
}

// StatsSource supplies aggregate counts. Callers must tolerate slow or
// absent implementations; the scheduler guards every call with a
// timeout.
type StatsSource interface {
	Totals(ctx context.Context) (Totals, error)
}

// SliceSource serves candidates from a fixed slice. Used for dry runs
// and tests.
type SliceSource struct {
	candidates []Candidate
	next       int
}

// NewSliceSource creates a source over the given candidates.
func NewSliceSource(candidates []Candidate) *SliceSource {
	return &SliceSource{candidates: candidates}
}

// Next pops the next candidate, or (nil, nil) once the slice is spent.
func (s *SliceSource) Next(ctx context.Context) (*Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.candidates) {
		return nil, nil
	}
	c := s.candidates[s.next]
	s.next++
	return &c, nil
}

// Remaining reports how many candidates are still queued.
func (s *SliceSource) Remaining() int {
	return len(s.candidates) - s.next
}
