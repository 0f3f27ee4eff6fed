package records

import "context"

// StaticSource serves records from memory. Used by dry runs against
// fixtures and by tests.
type StaticSource struct {
	Name  string
	Cases map[int][]Record
	Err   error

	Calls int
}

// Compile-time interface check.
var _ Source = (*StaticSource)(nil)

func (s *StaticSource) Table() string { return s.Name }

func (s *StaticSource) FetchCase(_ context.Context, caseID, limit int) ([]Record, error) {
	s.Calls++
	if s.Err != nil {
		return nil, &ReadError{Table: s.Name, CaseID: caseID, Err: s.Err}
	}
	recs := s.Cases[caseID]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
