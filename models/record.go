package models

import "time"

// AnalysisRecord is the persisted shape of one case analysis: a parent row
// plus six ordered child collections that reference it by ID.
type AnalysisRecord struct {
	ID               string    `json:"id"`
	CaseName         string    `json:"caseName"`
	CreatedAt        time.Time `json:"createdAt"`
	PersonName       string    `json:"personName"`
	CrimeConvicted   string    `json:"crimeConvicted"`
	InnocenceClaim   string    `json:"innocenceClaim"`
	ParoleBoardFocus string    `json:"paroleBoardFocus"`
	Summary          string    `json:"summary"`
	RiskScore        float64   `json:"riskScore"`

	KeyQuotes       []KeyQuoteRow      `json:"keyQuotes"`
	CriticalAlerts  []CriticalAlertRow `json:"criticalAlerts"`
	TimelineEvents  []TimelineEventRow `json:"timelineEvents"`
	Inconsistencies []InconsistencyRow `json:"inconsistencies"`
	EvidenceItems   []EvidenceItemRow  `json:"evidenceItems"`
	PrecedentCases  []PrecedentCaseRow `json:"precedentCases"`
}

// ChildRef links a child row to its parent analysis and fixes its position.
type ChildRef struct {
	AnalysisID string `json:"analysisId"`
	Ordinal    int    `json:"ordinal"`
}

type KeyQuoteRow struct {
	ChildRef
	KeyQuote
}

type CriticalAlertRow struct {
	ChildRef
	CriticalAlert
}

type TimelineEventRow struct {
	ChildRef
	TimelineEvent
}

type InconsistencyRow struct {
	ChildRef
	Inconsistency
}

type EvidenceItemRow struct {
	ChildRef
	EvidenceItem
}

type PrecedentCaseRow struct {
	ChildRef
	PrecedentCase
}

// AnalysisSummary is the list view of a persisted analysis.
type AnalysisSummary struct {
	ID         string    `json:"id"`
	CaseName   string    `json:"caseName"`
	PersonName string    `json:"personName"`
	RiskScore  float64   `json:"riskScore"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AnalysisDetail is a persisted analysis read back into CaseAnalysis form.
type AnalysisDetail struct {
	ID        string    `json:"id"`
	CaseName  string    `json:"caseName"`
	CreatedAt time.Time `json:"createdAt"`
	CaseAnalysis
}
