package models

// ProgressEvent is emitted before each case of a bulk run starts.
type ProgressEvent struct {
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Message  string `json:"message"`
	CaseName string `json:"caseName,omitempty"`
}

// CaseOutcome identifies one persisted case.
type CaseOutcome struct {
	ID        string  `json:"id"`
	CaseName  string  `json:"caseName"`
	RiskScore float64 `json:"riskScore"`
}

// CaseFailure records a case that was skipped in a bulk run.
type CaseFailure struct {
	Index    int    `json:"index"`
	CaseName string `json:"caseName"`
	Reason   string `json:"reason"`
}

// BatchResult is the terminal output of a submission.
type BatchResult struct {
	Bulk     bool          `json:"bulk"`
	PerCase  []CaseOutcome `json:"perCase"`
	Failures []CaseFailure `json:"failures,omitempty"`
}

// Succeeded returns the number of persisted cases.
func (r BatchResult) Succeeded() int {
	return len(r.PerCase)
}
