package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"evidex/models"
	"evidex/oracle"

	"github.com/stretchr/testify/require"
)

func analysisFor(name string, risk float64) *models.CaseAnalysis {
	return &models.CaseAnalysis{
		Summary:          "Summary for " + name,
		PersonName:       name,
		CrimeConvicted:   "Burglary",
		InnocenceClaim:   "Was at work",
		ParoleBoardFocus: "Remorse",
		RiskScore:        risk,
		KeyQuotes:        []models.KeyQuote{{Quote: "I was at work", LineNumber: "p.2", Context: "Testimony"}},
		CriticalAlerts:   []models.CriticalAlert{},
		TimelineEvents: []models.TimelineEvent{
			{Date: "2019-01-01", Event: "Arrest", Confidence: 0.9},
			{Date: "2019-06-01", Event: "Trial", Confidence: 0.8},
		},
		Inconsistencies: []models.Inconsistency{},
		EvidenceMatrix:  []models.EvidenceItem{{Evidence: "Prints", Type: "Forensic", Reliability: models.ReliabilityHigh, Notes: "Lab"}},
		PrecedentCases:  []models.PrecedentCase{},
	}
}

func analysisJSON(t *testing.T, a *models.CaseAnalysis) string {
	t.Helper()
	b, err := json.Marshal(a)
	require.NoError(t, err)
	return string(b)
}

func pdf(index int, name string) models.OpaqueFile {
	return models.OpaqueFile{Index: index, Name: name, MIMEType: "application/pdf", Kind: models.KindPDF, Data: []byte("%PDF-" + name)}
}

func audio(index int, name string) models.OpaqueFile {
	return models.OpaqueFile{Index: index, Name: name, MIMEType: "audio/mpeg", Kind: models.KindAudio, Data: []byte("ID3" + name)}
}

func txt(index int, name, content string) models.OpaqueFile {
	return models.OpaqueFile{Index: index, Name: name, MIMEType: "text/plain", Kind: models.KindTXT, Text: content}
}

// requestText joins all text parts of a request.
func requestText(req *oracle.Request) string {
	s := req.Prompt
	for _, p := range req.Parts {
		if !p.IsInline() {
			s += p.Text
		}
	}
	return s
}

type savedCase struct {
	name     string
	analysis *models.CaseAnalysis
}

type fakeRepo struct {
	mu     sync.Mutex
	saved  []savedCase
	failOn string
}

func (r *fakeRepo) Save(ctx context.Context, caseName string, a *models.CaseAnalysis) (*models.AnalysisRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caseName == r.failOn {
		return nil, errors.New("store unavailable")
	}
	r.saved = append(r.saved, savedCase{name: caseName, analysis: a})
	return &models.AnalysisRecord{
		ID:        fmt.Sprintf("id-%d", len(r.saved)),
		CaseName:  caseName,
		CreatedAt: time.Now(),
	}, nil
}

func (r *fakeRepo) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.saved {
		out = append(out, s.name)
	}
	return out
}

type fixedDetector models.DetectionResult

func (d fixedDetector) Detect(context.Context, *models.RawDocumentBundle) models.DetectionResult {
	return models.DetectionResult(d)
}

type analyzerFunc func(ctx context.Context, c models.CaseBundle) (*models.CaseAnalysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
	return f(ctx, c)
}
