// Package pipeline turns a document bundle into persisted case analyses:
// detect how many cases it covers, partition it, analyze each case and save
// the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"evidex/models"
)

// FallbackCaseName names a case whose analysis did not yield a person.
const FallbackCaseName = "Unknown Case"

type CaseDetector interface {
	Detect(ctx context.Context, bundle *models.RawDocumentBundle) models.DetectionResult
}

type CaseAnalyzer interface {
	Analyze(ctx context.Context, c models.CaseBundle) (*models.CaseAnalysis, error)
}

// Repository persists one analysis atomically.
type Repository interface {
	Save(ctx context.Context, caseName string, a *models.CaseAnalysis) (*models.AnalysisRecord, error)
}

// ProgressFunc receives progress events. It is called synchronously from Run.
type ProgressFunc func(models.ProgressEvent)

type Orchestrator struct {
	detector CaseDetector
	analyzer CaseAnalyzer
	repo     Repository
	logger   *slog.Logger
}

func NewOrchestrator(detector CaseDetector, analyzer CaseAnalyzer, repo Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		detector: detector,
		analyzer: analyzer,
		repo:     repo,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Run processes one submission.
//
// Single mode: any analysis or persistence error is returned.
// Bulk mode: cases run sequentially in detection order; an analysis failure
// is recorded and the batch continues, a persistence failure stops the batch
// and is returned together with the cases saved so far.
//
// Cancelling ctx stops the submission between cases. A case that has started
// is analyzed and saved to completion; the oracle's per-call timeout bounds it.
func (o *Orchestrator) Run(ctx context.Context, bundle *models.RawDocumentBundle, onProgress ProgressFunc) (*models.BatchResult, error) {
	if bundle == nil || bundle.IsEmpty() {
		return nil, &ValidationError{Reason: "at least one document or audio file is required"}
	}
	if onProgress == nil {
		onProgress = func(models.ProgressEvent) {}
	}

	o.logger.Info("Submission received", "state", "detecting", "files", len(bundle.Files))
	detection := o.detector.Detect(ctx, bundle)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cases := Partition(bundle, detection)
	if !detection.IsBulk() {
		return o.runSingle(ctx, cases[0], onProgress)
	}
	return o.runBulk(ctx, cases, onProgress)
}

func (o *Orchestrator) runSingle(ctx context.Context, c models.CaseBundle, onProgress ProgressFunc) (*models.BatchResult, error) {
	o.logger.Info("Analyzing single case", "state", "single")
	onProgress(models.ProgressEvent{Current: 0, Total: 1, Message: "Analyzing documents"})

	caseCtx := context.WithoutCancel(ctx)
	analysis, err := o.analyzer.Analyze(caseCtx, c)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(analysis.PersonName)
	if name == "" {
		name = FallbackCaseName
	}

	rec, err := o.repo.Save(caseCtx, name, analysis)
	if err != nil {
		return nil, &PersistenceError{CaseName: name, Err: err}
	}

	o.logger.Info("Submission complete", "state", "done", "analysisId", rec.ID)
	return &models.BatchResult{
		Bulk:    false,
		PerCase: []models.CaseOutcome{{ID: rec.ID, CaseName: name, RiskScore: analysis.RiskScore}},
	}, nil
}

func (o *Orchestrator) runBulk(ctx context.Context, cases []models.CaseBundle, onProgress ProgressFunc) (*models.BatchResult, error) {
	total := len(cases)
	o.logger.Info("Analyzing bulk submission", "state", "bulk", "cases", total)

	result := &models.BatchResult{Bulk: true, PerCase: []models.CaseOutcome{}}
	for i, c := range cases {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("Submission cancelled", "state", "cancelled", "completed", i)
			return result, err
		}

		logCtx := o.logger.With("case", c.Name, "current", i, "total", total)
		onProgress(models.ProgressEvent{
			Current:  i,
			Total:    total,
			Message:  fmt.Sprintf("Analyzing case %d of %d: %s", i+1, total, c.Name),
			CaseName: c.Name,
		})

		if c.IsEmpty() {
			logCtx.Warn("No files matched this person, skipping")
			result.Failures = append(result.Failures, models.CaseFailure{
				Index: i, CaseName: c.Name, Reason: "no files were assigned to this person",
			})
			continue
		}

		caseCtx := context.WithoutCancel(ctx)
		analysis, err := o.analyzer.Analyze(caseCtx, c)
		if err != nil {
			if !IsCaseFailure(err) {
				logCtx.Error("Case analysis failed unexpectedly, stopping", "error", err)
				return result, err
			}
			logCtx.Error("Case analysis failed, continuing", "error", err)
			result.Failures = append(result.Failures, models.CaseFailure{
				Index: i, CaseName: c.Name, Reason: err.Error(),
			})
			continue
		}

		rec, err := o.repo.Save(caseCtx, c.Name, analysis)
		if err != nil {
			logCtx.Error("Failed to save analysis, stopping", "error", err)
			return result, &PersistenceError{CaseName: c.Name, Err: err}
		}
		result.PerCase = append(result.PerCase, models.CaseOutcome{
			ID: rec.ID, CaseName: c.Name, RiskScore: analysis.RiskScore,
		})
	}

	o.logger.Info("Submission complete", "state", "done",
		"succeeded", result.Succeeded(), "failed", len(result.Failures))
	return result, nil
}

// IsCaseFailure reports whether err only affects a single case.
func IsCaseFailure(err error) bool {
	var ae *AnalysisError
	var te *TranscriptionError
	return errors.As(err, &ae) || errors.As(err, &te)
}
