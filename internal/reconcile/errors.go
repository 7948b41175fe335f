package reconcile

import "fmt"

// ClassificationInvariantError reports a partition that no classification
// rule matched. It indicates a gap in the rule set, not bad input.
type ClassificationInvariantError struct {
	CandidateID string
	ReferenceID string
}

func (e *ClassificationInvariantError) Error() string {
	return fmt.Sprintf("no classification rule matched candidate %q against reference %q", e.CandidateID, e.ReferenceID)
}
