package pipeline

import "evidex/oracle"

var personGroupSchema = oracle.Object(map[string]*oracle.Schema{
	"name":        oracle.String("The person's name"),
	"fileIndices": described(oracle.Array(oracle.Number("")), "Array of file indices (0-based) that belong to this person"),
}, "name", "fileIndices")

var detectionSchema = oracle.Object(map[string]*oracle.Schema{
	"multiplePeople": oracle.Boolean("True if documents contain information about multiple different people"),
	"people":         described(oracle.Array(personGroupSchema), "List of people and their associated file indices"),
}, "multiplePeople", "people")

var keyQuoteSchema = oracle.Object(map[string]*oracle.Schema{
	"quote":      oracle.String("The exact quote from the document"),
	"lineNumber": oracle.String("Line number or page reference where the quote appears"),
	"context":    oracle.String("Brief context about who said this and when"),
}, "quote", "lineNumber", "context")

var criticalAlertSchema = oracle.Object(map[string]*oracle.Schema{
	"title":       oracle.String(""),
	"description": oracle.String(""),
	"severity":    oracle.Enum("", "High", "Medium", "Low"),
}, "title", "description", "severity")

var timelineEventSchema = oracle.Object(map[string]*oracle.Schema{
	"date":       oracle.String("Date of the event (e.g., YYYY-MM-DD)"),
	"event":      oracle.String("Description of the event."),
	"confidence": oracle.Number("Confidence score (0-1) of the event's accuracy."),
}, "date", "event", "confidence")

var inconsistencySchema = oracle.Object(map[string]*oracle.Schema{
	"statement1": oracle.String(""),
	"source1":    oracle.String("Source of the first statement (e.g., 'Witness A testimony')."),
	"statement2": oracle.String(""),
	"source2":    oracle.String("Source of the second statement (e.g., 'Police Report')."),
	"analysis":   oracle.String("Analysis of the contradiction."),
}, "statement1", "source1", "statement2", "source2", "analysis")

var evidenceItemSchema = oracle.Object(map[string]*oracle.Schema{
	"evidence":    oracle.String(""),
	"type":        oracle.String("Type of evidence (e.g., Forensic, Eyewitness, Documentary)."),
	"reliability": oracle.Enum("", "High", "Medium", "Low", "Unverified"),
	"notes":       oracle.String("Brief notes on why this reliability was assigned."),
}, "evidence", "type", "reliability", "notes")

var precedentCaseSchema = oracle.Object(map[string]*oracle.Schema{
	"caseName": oracle.String(""),
	"summary":  oracle.String(""),
	"outcome":  oracle.String(""),
}, "caseName", "summary", "outcome")

var analysisSchema = oracle.Object(map[string]*oracle.Schema{
	"summary":          oracle.String("A concise summary of the entire case based on the provided documents."),
	"personName":       oracle.String("The name of the person/defendant in this case."),
	"crimeConvicted":   oracle.String("The crime(s) they were convicted of."),
	"innocenceClaim":   oracle.String("What they said about their innocence, their claims or statements."),
	"paroleBoardFocus": oracle.String("What the parole board focused on during their review."),
	"riskScore":        oracle.Number("A score from 0 to 100 quantifying the likelihood of innocence based on all factors. Higher score = higher likelihood of innocence."),
	"keyQuotes":        described(oracle.Array(keyQuoteSchema), "Important quotes from the documents with their line numbers and context."),
	"criticalAlerts":   described(oracle.Array(criticalAlertSchema), "A list of high-priority inconsistencies and evidence gaps."),
	"timelineEvents":   described(oracle.Array(timelineEventSchema), "A chronological timeline of key events from the documents."),
	"inconsistencies":  described(oracle.Array(inconsistencySchema), "Contradictions found between different documents or statements."),
	"evidenceMatrix":   described(oracle.Array(evidenceItemSchema), "A matrix ranking the reliability of key evidence."),
	"precedentCases":   described(oracle.Array(precedentCaseSchema), "A list of similar past cases and their outcomes for comparison."),
},
	"summary", "personName", "crimeConvicted", "innocenceClaim", "paroleBoardFocus",
	"keyQuotes", "criticalAlerts", "timelineEvents", "inconsistencies",
	"evidenceMatrix", "riskScore", "precedentCases",
)

var transcriptSchema = oracle.Array(oracle.Object(map[string]*oracle.Schema{
	"timestamp": oracle.String("Timestamp in HH:MM:SS format when this segment starts"),
	"speaker":   oracle.String("Speaker label, e.g. 'Judge', 'Defense Attorney', 'Speaker 1'"),
	"dialogue":  oracle.String("Verbatim transcription of what was said"),
}, "timestamp", "speaker", "dialogue"))

func described(s *oracle.Schema, description string) *oracle.Schema {
	s.Description = description
	return s
}
