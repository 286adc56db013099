package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"evidex/models"

	"golang.org/x/sync/errgroup"
)

// AnalysisRepository persists case analyses as one parent row plus six
// child collections.
type AnalysisRepository struct {
	store  Store
	logger *slog.Logger
}

func NewAnalysisRepository(store Store, logger *slog.Logger) *AnalysisRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisRepository{store: store, logger: logger.With("component", "analysis_repository")}
}

// Store returns the underlying store.
func (r *AnalysisRepository) Store() Store {
	return r.store
}

// Save inserts the parent row, then every child collection. Children are
// written concurrently per collection and in ordinal order within one.
// If any child insert fails the rows written so far and the parent are
// removed before the error is returned, so a half-written analysis is never
// left behind.
func (r *AnalysisRepository) Save(ctx context.Context, caseName string, a *models.CaseAnalysis) (*models.AnalysisRecord, error) {
	rec := ToRecord(caseName, a)

	parent, err := parentRow(rec)
	if err != nil {
		return nil, err
	}
	id, err := r.store.Insert(ctx, CollAnalysis, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", CollAnalysis, err)
	}
	BindParent(rec, id)

	logCtx := r.logger.With("analysisId", id, "caseName", caseName)

	children, err := childRows(rec)
	if err != nil {
		r.rollback(ctx, logCtx, id)
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, collection := range childCollections {
		rows := children[collection]
		if len(rows) == 0 {
			continue
		}
		g.Go(func() error {
			for _, row := range rows {
				if _, err := r.store.Insert(gctx, collection, row); err != nil {
					return fmt.Errorf("failed to insert %s: %w", collection, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logCtx.Error("Child insert failed, rolling back analysis", "error", err)
		r.rollback(ctx, logCtx, id)
		return nil, err
	}

	if saved, err := r.store.SelectByID(ctx, CollAnalysis, id); err == nil {
		if t, ok := saved["createdAt"].(time.Time); ok {
			rec.CreatedAt = t
		}
	}

	logCtx.Info("Analysis saved", "riskScore", rec.RiskScore)
	return rec, nil
}

// rollback runs on a context detached from cancellation so an aborted
// request still cleans up after itself.
func (r *AnalysisRepository) rollback(ctx context.Context, logCtx *slog.Logger, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for _, collection := range childCollections {
		if _, err := r.store.DeleteWhere(ctx, collection, "analysisId", id); err != nil {
			logCtx.Error("Rollback failed to delete child rows", "collection", collection, "error", err)
		}
	}
	if err := r.store.DeleteByID(ctx, CollAnalysis, id); err != nil && !errors.Is(err, ErrNotFound) {
		logCtx.Error("Rollback failed to delete parent row", "error", err)
	}
}

// Get reads one analysis with its children in ordinal order.
func (r *AnalysisRepository) Get(ctx context.Context, id string) (*models.AnalysisDetail, error) {
	row, err := r.store.SelectByID(ctx, CollAnalysis, id)
	if err != nil {
		return nil, err
	}

	var rec models.AnalysisRecord
	if err := decodeRow(row, &rec); err != nil {
		return nil, err
	}
	rec.ID = id

	for _, collection := range childCollections {
		rows, err := r.store.SelectAll(ctx, collection, Query{
			Field:   "analysisId",
			Value:   id,
			OrderBy: "ordinal",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", collection, err)
		}
		if err := decodeChildren(&rec, collection, rows); err != nil {
			return nil, err
		}
	}

	return &models.AnalysisDetail{
		ID:           rec.ID,
		CaseName:     rec.CaseName,
		CreatedAt:    rec.CreatedAt,
		CaseAnalysis: *FromRecord(&rec),
	}, nil
}

// List returns every analysis, newest first.
func (r *AnalysisRepository) List(ctx context.Context) ([]models.AnalysisSummary, error) {
	rows, err := r.store.SelectAll(ctx, CollAnalysis, Query{OrderBy: "createdAt", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", CollAnalysis, err)
	}

	summaries := make([]models.AnalysisSummary, 0, len(rows))
	for _, row := range rows {
		var s models.AnalysisSummary
		if err := decodeRow(row, &s); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Delete removes the children first, then the parent, so an interrupted
// delete can be retried.
func (r *AnalysisRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.store.SelectByID(ctx, CollAnalysis, id); err != nil {
		return err
	}

	for _, collection := range childCollections {
		if _, err := r.store.DeleteWhere(ctx, collection, "analysisId", id); err != nil {
			return fmt.Errorf("failed to delete %s rows: %w", collection, err)
		}
	}
	if err := r.store.DeleteByID(ctx, CollAnalysis, id); err != nil {
		return err
	}

	r.logger.Info("Analysis deleted", "analysisId", id)
	return nil
}
