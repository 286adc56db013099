package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"evidex/models"
	"evidex/oracle"
	"evidex/prompts"

	"github.com/go-playground/validator/v10"
)

// Analyzer produces a CaseAnalysis for one case bundle.
type Analyzer struct {
	oracle      oracle.Oracle
	transcriber *Transcriber
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewAnalyzer(o oracle.Oracle, transcriber *Transcriber, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		oracle:      o,
		transcriber: transcriber,
		validate:    validator.New(),
		logger:      logger.With("component", "analyzer"),
	}
}

// The oracle's reply is decoded through pointer fields so a missing key can
// be told apart from a zero value.
type analysisResponse struct {
	Summary          *string                 `json:"summary" validate:"required"`
	PersonName       *string                 `json:"personName" validate:"required"`
	CrimeConvicted   *string                 `json:"crimeConvicted" validate:"required"`
	InnocenceClaim   *string                 `json:"innocenceClaim" validate:"required"`
	ParoleBoardFocus *string                 `json:"paroleBoardFocus" validate:"required"`
	RiskScore        *float64                `json:"riskScore" validate:"required"`
	KeyQuotes        []keyQuoteResponse      `json:"keyQuotes" validate:"required,dive"`
	CriticalAlerts   []criticalAlertResponse `json:"criticalAlerts" validate:"required,dive"`
	TimelineEvents   []timelineEventResponse `json:"timelineEvents" validate:"required,dive"`
	Inconsistencies  []inconsistencyResponse `json:"inconsistencies" validate:"required,dive"`
	EvidenceMatrix   []evidenceItemResponse  `json:"evidenceMatrix" validate:"required,dive"`
	PrecedentCases   []precedentCaseResponse `json:"precedentCases" validate:"required,dive"`
}

type keyQuoteResponse struct {
	Quote      *string `json:"quote" validate:"required"`
	LineNumber *string `json:"lineNumber" validate:"required"`
	Context    *string `json:"context" validate:"required"`
}

type criticalAlertResponse struct {
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Severity    *string `json:"severity" validate:"required"`
}

type timelineEventResponse struct {
	Date       *string  `json:"date" validate:"required"`
	Event      *string  `json:"event" validate:"required"`
	Confidence *float64 `json:"confidence" validate:"required"`
}

type inconsistencyResponse struct {
	Statement1 *string `json:"statement1" validate:"required"`
	Source1    *string `json:"source1" validate:"required"`
	Statement2 *string `json:"statement2" validate:"required"`
	Source2    *string `json:"source2" validate:"required"`
	Analysis   *string `json:"analysis" validate:"required"`
}

type evidenceItemResponse struct {
	Evidence    *string `json:"evidence" validate:"required"`
	Type        *string `json:"type" validate:"required"`
	Reliability *string `json:"reliability" validate:"required"`
	Notes       *string `json:"notes" validate:"required"`
}

type precedentCaseResponse struct {
	CaseName *string `json:"caseName" validate:"required"`
	Summary  *string `json:"summary" validate:"required"`
	Outcome  *string `json:"outcome" validate:"required"`
}

// Analyze transcribes any audio in the case, then sends the analysis prompt
// followed by the free text, the transcripts and the documents, each in index
// order. A transcription failure fails the case.
func (a *Analyzer) Analyze(ctx context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
	logCtx := a.logger.With("case", c.Name, "files", len(c.Files))
	if c.IsEmpty() {
		return nil, &AnalysisError{CaseName: c.Name, Err: fmt.Errorf("no documents to analyze")}
	}

	parts, err := a.analysisParts(ctx, c)
	if err != nil {
		return nil, err
	}

	logCtx.Info("Requesting case analysis", "parts", len(parts))
	text, err := a.oracle.Generate(ctx, &oracle.Request{
		Prompt: prompts.CaseAnalysis,
		Parts:  parts,
		Schema: analysisSchema,
	})
	if err != nil {
		logCtx.Error("Analysis call failed", "error", err)
		return nil, &AnalysisError{CaseName: c.Name, Err: err}
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &resp); err != nil {
		logCtx.Error("Failed to parse analysis", "error", err, "response", truncate(text, 500))
		return nil, &AnalysisError{CaseName: c.Name, Err: fmt.Errorf("the AI returned a response in an unexpected format: %w", err)}
	}
	if err := a.validate.Struct(resp); err != nil {
		logCtx.Error("Analysis is missing required fields", "error", err)
		return nil, &AnalysisError{CaseName: c.Name, Err: fmt.Errorf("the AI response is incomplete: %w", err)}
	}

	analysis := resp.toModel()
	logCtx.Info("Analysis complete", "person", analysis.PersonName, "riskScore", analysis.RiskScore)
	return analysis, nil
}

func (a *Analyzer) analysisParts(ctx context.Context, c models.CaseBundle) ([]oracle.Part, error) {
	var parts []oracle.Part
	if strings.TrimSpace(c.Text) != "" {
		parts = append(parts, oracle.Text(prompts.TextDocuments(c.Text)))
	}

	for _, f := range c.Files {
		if !f.IsAudio() {
			continue
		}
		if a.transcriber == nil {
			return nil, &TranscriptionError{FileName: f.Name, Err: &oracle.OracleError{Reason: oracle.ReasonClient}}
		}
		transcript, err := a.transcriber.Transcribe(ctx, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, oracle.Text(prompts.AudioTranscript(f.Name, transcript)))
	}

	for _, f := range c.Files {
		if f.IsAudio() {
			continue
		}
		if f.IsTextual() {
			parts = append(parts, oracle.Text(prompts.NamedFile(f.Name, f.Text)))
			continue
		}
		parts = append(parts, oracle.Inline(f.Data, f.MIMEType))
	}
	return parts, nil
}

func (r *analysisResponse) toModel() *models.CaseAnalysis {
	a := &models.CaseAnalysis{
		Summary:          *r.Summary,
		PersonName:       *r.PersonName,
		CrimeConvicted:   *r.CrimeConvicted,
		InnocenceClaim:   *r.InnocenceClaim,
		ParoleBoardFocus: *r.ParoleBoardFocus,
		RiskScore:        *r.RiskScore,
		KeyQuotes:        make([]models.KeyQuote, 0, len(r.KeyQuotes)),
		CriticalAlerts:   make([]models.CriticalAlert, 0, len(r.CriticalAlerts)),
		TimelineEvents:   make([]models.TimelineEvent, 0, len(r.TimelineEvents)),
		Inconsistencies:  make([]models.Inconsistency, 0, len(r.Inconsistencies)),
		EvidenceMatrix:   make([]models.EvidenceItem, 0, len(r.EvidenceMatrix)),
		PrecedentCases:   make([]models.PrecedentCase, 0, len(r.PrecedentCases)),
	}
	for _, q := range r.KeyQuotes {
		a.KeyQuotes = append(a.KeyQuotes, models.KeyQuote{
			Quote: *q.Quote, LineNumber: *q.LineNumber, Context: *q.Context,
		})
	}
	for _, c := range r.CriticalAlerts {
		a.CriticalAlerts = append(a.CriticalAlerts, models.CriticalAlert{
			Title: *c.Title, Description: *c.Description, Severity: models.Severity(*c.Severity),
		})
	}
	for _, t := range r.TimelineEvents {
		a.TimelineEvents = append(a.TimelineEvents, models.TimelineEvent{
			Date: *t.Date, Event: *t.Event, Confidence: *t.Confidence,
		})
	}
	for _, i := range r.Inconsistencies {
		a.Inconsistencies = append(a.Inconsistencies, models.Inconsistency{
			Statement1: *i.Statement1, Source1: *i.Source1,
			Statement2: *i.Statement2, Source2: *i.Source2,
			Analysis: *i.Analysis,
		})
	}
	for _, e := range r.EvidenceMatrix {
		a.EvidenceMatrix = append(a.EvidenceMatrix, models.EvidenceItem{
			Evidence: *e.Evidence, Type: *e.Type, Reliability: models.Reliability(*e.Reliability), Notes: *e.Notes,
		})
	}
	for _, p := range r.PrecedentCases {
		a.PrecedentCases = append(a.PrecedentCases, models.PrecedentCase{
			CaseName: *p.CaseName, Summary: *p.Summary, Outcome: *p.Outcome,
		})
	}
	return a
}
