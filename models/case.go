package models

// Severity of a critical alert
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Reliability of an evidence item
type Reliability string

const (
	ReliabilityHigh       Reliability = "High"
	ReliabilityMedium     Reliability = "Medium"
	ReliabilityLow        Reliability = "Low"
	ReliabilityUnverified Reliability = "Unverified"
)

// CaseAnalysis is the structured extraction returned by the oracle for one case.
// Slice order is display order.
type CaseAnalysis struct {
	Summary          string  `json:"summary"`
	PersonName       string  `json:"personName"`
	CrimeConvicted   string  `json:"crimeConvicted"`
	InnocenceClaim   string  `json:"innocenceClaim"`
	ParoleBoardFocus string  `json:"paroleBoardFocus"`
	RiskScore        float64 `json:"riskScore"`

	KeyQuotes       []KeyQuote      `json:"keyQuotes"`
	CriticalAlerts  []CriticalAlert `json:"criticalAlerts"`
	TimelineEvents  []TimelineEvent `json:"timelineEvents"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	EvidenceMatrix  []EvidenceItem  `json:"evidenceMatrix"`
	PrecedentCases  []PrecedentCase `json:"precedentCases"`
}

type KeyQuote struct {
	Quote      string `json:"quote"`
	LineNumber string `json:"lineNumber"`
	Context    string `json:"context"`
}

type CriticalAlert struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type TimelineEvent struct {
	Date       string  `json:"date"`
	Event      string  `json:"event"`
	Confidence float64 `json:"confidence"`
}

type Inconsistency struct {
	Statement1 string `json:"statement1"`
	Source1    string `json:"source1"`
	Statement2 string `json:"statement2"`
	Source2    string `json:"source2"`
	Analysis   string `json:"analysis"`
}

type EvidenceItem struct {
	Evidence    string      `json:"evidence"`
	Type        string      `json:"type"`
	Reliability Reliability `json:"reliability"`
	Notes       string      `json:"notes"`
}

type PrecedentCase struct {
	CaseName string `json:"caseName"`
	Summary  string `json:"summary"`
	Outcome  string `json:"outcome"`
}
