package db

import (
	"encoding/json"
	"fmt"
	"sort"

	"evidex/models"
)

// Collection names. Child rows carry "analysisId" and "ordinal".
const (
	CollAnalysis      = "Analysis"
	CollKeyQuote      = "KeyQuote"
	CollCriticalAlert = "CriticalAlert"
	CollTimelineEvent = "TimelineEvent"
	CollInconsistency = "Inconsistency"
	CollEvidenceItem  = "EvidenceItem"
	CollPrecedentCase = "PrecedentCase"
)

var childCollections = []string{
	CollKeyQuote,
	CollCriticalAlert,
	CollTimelineEvent,
	CollInconsistency,
	CollEvidenceItem,
	CollPrecedentCase,
}

// ToRecord flattens an analysis into its persisted shape. Each child gets
// its position as an explicit ordinal; ids are bound later by BindParent.
func ToRecord(caseName string, a *models.CaseAnalysis) *models.AnalysisRecord {
	rec := &models.AnalysisRecord{
		CaseName:         caseName,
		PersonName:       a.PersonName,
		CrimeConvicted:   a.CrimeConvicted,
		InnocenceClaim:   a.InnocenceClaim,
		ParoleBoardFocus: a.ParoleBoardFocus,
		Summary:          a.Summary,
		RiskScore:        a.RiskScore,
	}

	for i, v := range a.KeyQuotes {
		rec.KeyQuotes = append(rec.KeyQuotes, models.KeyQuoteRow{ChildRef: models.ChildRef{Ordinal: i}, KeyQuote: v})
	}
	for i, v := range a.CriticalAlerts {
		rec.CriticalAlerts = append(rec.CriticalAlerts, models.CriticalAlertRow{ChildRef: models.ChildRef{Ordinal: i}, CriticalAlert: v})
	}
	for i, v := range a.TimelineEvents {
		rec.TimelineEvents = append(rec.TimelineEvents, models.TimelineEventRow{ChildRef: models.ChildRef{Ordinal: i}, TimelineEvent: v})
	}
	for i, v := range a.Inconsistencies {
		rec.Inconsistencies = append(rec.Inconsistencies, models.InconsistencyRow{ChildRef: models.ChildRef{Ordinal: i}, Inconsistency: v})
	}
	for i, v := range a.EvidenceMatrix {
		rec.EvidenceItems = append(rec.EvidenceItems, models.EvidenceItemRow{ChildRef: models.ChildRef{Ordinal: i}, EvidenceItem: v})
	}
	for i, v := range a.PrecedentCases {
		rec.PrecedentCases = append(rec.PrecedentCases, models.PrecedentCaseRow{ChildRef: models.ChildRef{Ordinal: i}, PrecedentCase: v})
	}
	return rec
}

// BindParent sets the record id and points every child at it.
func BindParent(rec *models.AnalysisRecord, id string) {
	rec.ID = id
	for i := range rec.KeyQuotes {
		rec.KeyQuotes[i].AnalysisID = id
	}
	for i := range rec.CriticalAlerts {
		rec.CriticalAlerts[i].AnalysisID = id
	}
	for i := range rec.TimelineEvents {
		rec.TimelineEvents[i].AnalysisID = id
	}
	for i := range rec.Inconsistencies {
		rec.Inconsistencies[i].AnalysisID = id
	}
	for i := range rec.EvidenceItems {
		rec.EvidenceItems[i].AnalysisID = id
	}
	for i := range rec.PrecedentCases {
		rec.PrecedentCases[i].AnalysisID = id
	}
}

// FromRecord rebuilds the analysis, ordering children by ordinal whatever
// order the store returned them in.
func FromRecord(rec *models.AnalysisRecord) *models.CaseAnalysis {
	a := &models.CaseAnalysis{
		Summary:          rec.Summary,
		PersonName:       rec.PersonName,
		CrimeConvicted:   rec.CrimeConvicted,
		InnocenceClaim:   rec.InnocenceClaim,
		ParoleBoardFocus: rec.ParoleBoardFocus,
		RiskScore:        rec.RiskScore,
		KeyQuotes:        []models.KeyQuote{},
		CriticalAlerts:   []models.CriticalAlert{},
		TimelineEvents:   []models.TimelineEvent{},
		Inconsistencies:  []models.Inconsistency{},
		EvidenceMatrix:   []models.EvidenceItem{},
		PrecedentCases:   []models.PrecedentCase{},
	}

	for _, r := range byOrdinal(rec.KeyQuotes, func(r models.KeyQuoteRow) int { return r.Ordinal }) {
		a.KeyQuotes = append(a.KeyQuotes, r.KeyQuote)
	}
	for _, r := range byOrdinal(rec.CriticalAlerts, func(r models.CriticalAlertRow) int { return r.Ordinal }) {
		a.CriticalAlerts = append(a.CriticalAlerts, r.CriticalAlert)
	}
	for _, r := range byOrdinal(rec.TimelineEvents, func(r models.TimelineEventRow) int { return r.Ordinal }) {
		a.TimelineEvents = append(a.TimelineEvents, r.TimelineEvent)
	}
	for _, r := range byOrdinal(rec.Inconsistencies, func(r models.InconsistencyRow) int { return r.Ordinal }) {
		a.Inconsistencies = append(a.Inconsistencies, r.Inconsistency)
	}
	for _, r := range byOrdinal(rec.EvidenceItems, func(r models.EvidenceItemRow) int { return r.Ordinal }) {
		a.EvidenceMatrix = append(a.EvidenceMatrix, r.EvidenceItem)
	}
	for _, r := range byOrdinal(rec.PrecedentCases, func(r models.PrecedentCaseRow) int { return r.Ordinal }) {
		a.PrecedentCases = append(a.PrecedentCases, r.PrecedentCase)
	}
	return a
}

func byOrdinal[T any](rows []T, ordinal func(T) int) []T {
	sorted := make([]T, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ordinal(sorted[i]) < ordinal(sorted[j])
	})
	return sorted
}

// encodeRow turns a tagged struct into a Row using its JSON field names.
func encodeRow(v any) (Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to encode row: %w", err)
	}
	return row, nil
}

// decodeRow fills a tagged struct from a Row. Numeric widths and time
// values from any backend survive the JSON hop.
func decodeRow(row Row, v any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// parentRow is the Analysis row: scalar fields only, no store-owned keys.
func parentRow(rec *models.AnalysisRecord) (Row, error) {
	row, err := encodeRow(rec)
	if err != nil {
		return nil, err
	}
	delete(row, "id")
	delete(row, "createdAt")
	delete(row, "keyQuotes")
	delete(row, "criticalAlerts")
	delete(row, "timelineEvents")
	delete(row, "inconsistencies")
	delete(row, "evidenceItems")
	delete(row, "precedentCases")
	return row, nil
}

// childRows returns each child collection's rows in ordinal order.
func childRows(rec *models.AnalysisRecord) (map[string][]Row, error) {
	out := make(map[string][]Row, len(childCollections))
	add := func(collection string, v any) error {
		row, err := encodeRow(v)
		if err != nil {
			return err
		}
		out[collection] = append(out[collection], row)
		return nil
	}

	for _, v := range rec.KeyQuotes {
		if err := add(CollKeyQuote, v); err != nil {
			return nil, err
		}
	}
	for _, v := range rec.CriticalAlerts {
		if err := add(CollCriticalAlert, v); err != nil {
			return nil, err
		}
	}
	for _, v := range rec.TimelineEvents {
		if err := add(CollTimelineEvent, v); err != nil {
			return nil, err
		}
	}
	for _, v := range rec.Inconsistencies {
		if err := add(CollInconsistency, v); err != nil {
			return nil, err
		}
	}
	for _, v := range rec.EvidenceItems {
		if err := add(CollEvidenceItem, v); err != nil {
			return nil, err
		}
	}
	for _, v := range rec.PrecedentCases {
		if err := add(CollPrecedentCase, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeChildren fills one child slice of rec from the given collection's rows.
func decodeChildren(rec *models.AnalysisRecord, collection string, rows []Row) error {
	var target any
	switch collection {
	case CollKeyQuote:
		target = &rec.KeyQuotes
	case CollCriticalAlert:
		target = &rec.CriticalAlerts
	case CollTimelineEvent:
		target = &rec.TimelineEvents
	case CollInconsistency:
		target = &rec.Inconsistencies
	case CollEvidenceItem:
		target = &rec.EvidenceItems
	case CollPrecedentCase:
		target = &rec.PrecedentCases
	default:
		return fmt.Errorf("unknown child collection %q", collection)
	}
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", collection, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", collection, err)
	}
	return nil
}
