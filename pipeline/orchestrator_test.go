package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"evidex/db"
	"evidex/models"
	"evidex/oracle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bulkDetection(names ...string) fixedDetector {
	d := fixedDetector{MultiplePeople: true}
	for i, n := range names {
		d.People = append(d.People, models.PersonGroup{Name: n, FileIndices: []int{i}})
	}
	return d
}

func bundleOf(n int) *models.RawDocumentBundle {
	b := &models.RawDocumentBundle{}
	for i := 0; i < n; i++ {
		b.Files = append(b.Files, pdf(i, fmt.Sprintf("doc%d.pdf", i)))
	}
	return b
}

func echoAnalyzer() analyzerFunc {
	return func(_ context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		return analysisFor(c.Name, 40), nil
	}
}

func TestRunSingleModeFromText(t *testing.T) {
	ctx := context.Background()
	calls := 0
	o := oracle.Func(func(_ context.Context, req *oracle.Request) (string, error) {
		calls++
		if req.Schema == detectionSchema {
			return "", &oracle.OracleError{Reason: oracle.ReasonCall}
		}
		assert.Contains(t, requestText(req), "stmt A")
		return analysisJSON(t, analysisFor("", 55)), nil
	})
	repo := &fakeRepo{}
	orch := NewOrchestrator(NewDetector(o, nil), NewAnalyzer(o, nil, nil), repo, nil)

	result, err := orch.Run(ctx, &models.RawDocumentBundle{Text: "stmt A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.False(t, result.Bulk)
	require.Len(t, result.PerCase, 1)
	assert.Equal(t, FallbackCaseName, result.PerCase[0].CaseName)
	assert.Equal(t, 55.0, result.PerCase[0].RiskScore)
	assert.Equal(t, []string{FallbackCaseName}, repo.names())
}

func TestRunSingleModeNamesCaseAfterPerson(t *testing.T) {
	repo := &fakeRepo{}
	orch := NewOrchestrator(fixedDetector{People: []models.PersonGroup{}}, analyzerFunc(func(context.Context, models.CaseBundle) (*models.CaseAnalysis, error) {
		return analysisFor("  Carol King ", 104), nil
	}), repo, nil)

	result, err := orch.Run(context.Background(), bundleOf(2), nil)
	require.NoError(t, err)
	assert.Equal(t, "Carol King", result.PerCase[0].CaseName)
	assert.Equal(t, 104.0, result.PerCase[0].RiskScore)
}

func TestRunSingleModeAnalysisErrorIsReturned(t *testing.T) {
	repo := &fakeRepo{}
	orch := NewOrchestrator(fixedDetector{}, analyzerFunc(func(context.Context, models.CaseBundle) (*models.CaseAnalysis, error) {
		return nil, &AnalysisError{Err: errors.New("bad json")}
	}), repo, nil)

	_, err := orch.Run(context.Background(), bundleOf(1), nil)
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.True(t, IsCaseFailure(err))
	assert.Empty(t, repo.names())
}

func TestRunRejectsEmptyBundle(t *testing.T) {
	orch := NewOrchestrator(fixedDetector{}, echoAnalyzer(), &fakeRepo{}, nil)
	_, err := orch.Run(context.Background(), &models.RawDocumentBundle{Text: "  "}, nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRunBulkScenario(t *testing.T) {
	detection := fixedDetector{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{0, 1}},
			{Name: "Bob", FileIndices: []int{2, 3}},
		},
	}
	var analyzed []models.CaseBundle
	analyzer := analyzerFunc(func(_ context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		analyzed = append(analyzed, c)
		return analysisFor(c.Name, 30), nil
	})
	repo := &fakeRepo{}
	var events []models.ProgressEvent

	result, err := NewOrchestrator(detection, analyzer, repo, nil).Run(context.Background(), bundleOf(4), func(e models.ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	assert.True(t, result.Bulk)
	assert.Equal(t, 2, result.Succeeded())
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"Alice", "Bob"}, repo.names())

	require.Len(t, analyzed, 2)
	assert.Equal(t, "doc0.pdf", analyzed[0].Files[0].Name)
	assert.Equal(t, "doc3.pdf", analyzed[1].Files[1].Name)

	require.Len(t, events, 2)
	for i, e := range events {
		assert.Equal(t, i, e.Current)
		assert.Equal(t, 2, e.Total)
	}
	assert.Equal(t, "Bob", events[1].CaseName)
}

func TestRunBulkProgressIsMonotonic(t *testing.T) {
	var current []int
	_, err := NewOrchestrator(bulkDetection("A", "B", "C", "D", "E"), echoAnalyzer(), &fakeRepo{}, nil).
		Run(context.Background(), bundleOf(5), func(e models.ProgressEvent) {
			assert.LessOrEqual(t, e.Current, e.Total)
			assert.Equal(t, 5, e.Total)
			current = append(current, e.Current)
		})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, current)
}

func TestRunBulkIsolatesCaseFailures(t *testing.T) {
	analyzer := analyzerFunc(func(_ context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		if c.Name == "Case 2" {
			return nil, &AnalysisError{CaseName: c.Name, Err: errors.New("malformed response")}
		}
		return analysisFor(c.Name, 20), nil
	})
	repo := &fakeRepo{}

	result, err := NewOrchestrator(bulkDetection("Case 1", "Case 2", "Case 3"), analyzer, repo, nil).
		Run(context.Background(), bundleOf(3), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Case 1", "Case 3"}, repo.names())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, "Case 2", result.Failures[0].CaseName)
	assert.Contains(t, result.Failures[0].Reason, "malformed response")
}

func TestRunBulkRecordsEmptyGroupWithoutAnalyzing(t *testing.T) {
	detection := fixedDetector{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{0}},
			{Name: "Ghost", FileIndices: []int{42}},
		},
	}
	calls := 0
	analyzer := analyzerFunc(func(_ context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		calls++
		return analysisFor(c.Name, 1), nil
	})

	result, err := NewOrchestrator(detection, analyzer, &fakeRepo{}, nil).Run(context.Background(), bundleOf(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "Ghost", result.Failures[0].CaseName)
}

func TestRunBulkPersistenceErrorStopsBatch(t *testing.T) {
	repo := &fakeRepo{failOn: "B"}
	result, err := NewOrchestrator(bulkDetection("A", "B", "C"), echoAnalyzer(), repo, nil).
		Run(context.Background(), bundleOf(3), nil)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "B", pe.CaseName)
	assert.False(t, IsCaseFailure(err))
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Succeeded())
	assert.Equal(t, []string{"A"}, repo.names())
}

func TestRunBulkStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := db.NewAnalysisRepository(db.NewMemory(), nil)
	analyzer := analyzerFunc(func(caseCtx context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		if c.Name == "B" {
			cancel()
			assert.NoError(t, caseCtx.Err(), "a running case keeps its context")
		}
		return analysisFor(c.Name, 1), nil
	})

	result, err := NewOrchestrator(bulkDetection("A", "B", "C", "D"), analyzer, repo, nil).
		Run(ctx, bundleOf(4), nil)
	require.ErrorIs(t, err, context.Canceled)
	var pe *PersistenceError
	assert.False(t, errors.As(err, &pe))

	assert.Equal(t, 2, result.Succeeded())
	assert.ElementsMatch(t, []string{"A", "B"}, storedNames(t, repo))
}

func TestRunSingleModeFinishesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := db.NewAnalysisRepository(db.NewMemory(), nil)
	analyzer := analyzerFunc(func(context.Context, models.CaseBundle) (*models.CaseAnalysis, error) {
		cancel()
		return analysisFor("Dana", 12), nil
	})

	result, err := NewOrchestrator(fixedDetector{}, analyzer, repo, nil).Run(ctx, bundleOf(1), nil)
	require.NoError(t, err)
	require.Len(t, result.PerCase, 1)
	assert.Equal(t, []string{"Dana"}, storedNames(t, repo))
}

func TestRunBulkIsolatesTranscriptionFailures(t *testing.T) {
	bundle := &models.RawDocumentBundle{Files: []models.OpaqueFile{
		pdf(0, "alice.pdf"),
		pdf(1, "carol.pdf"),
		audio(2, "bob.mp3"),
	}}
	detection := fixedDetector{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{0}},
			{Name: "Bob", FileIndices: []int{2}},
			{Name: "Carol", FileIndices: []int{1}},
		},
	}
	o := oracle.Func(func(_ context.Context, req *oracle.Request) (string, error) {
		if req.Schema == analysisSchema {
			return analysisJSON(t, analysisFor("", 25)), nil
		}
		return "", &oracle.OracleError{Reason: oracle.ReasonCall, Err: errors.New("audio rejected")}
	})
	repo := db.NewAnalysisRepository(db.NewMemory(), nil)
	analyzer := NewAnalyzer(o, NewTranscriber(o, "", nil), nil)

	result, err := NewOrchestrator(detection, analyzer, repo, nil).Run(context.Background(), bundle, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded())
	assert.ElementsMatch(t, []string{"Alice", "Carol"}, storedNames(t, repo))
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 1, result.Failures[0].Index)
	assert.Equal(t, "Bob", result.Failures[0].CaseName)
	assert.Contains(t, result.Failures[0].Reason, "bob.mp3")
}

func TestRunBulkStopsOnUnexpectedAnalyzerError(t *testing.T) {
	analyzer := analyzerFunc(func(_ context.Context, c models.CaseBundle) (*models.CaseAnalysis, error) {
		if c.Name == "B" {
			return nil, errors.New("analyzer misconfigured")
		}
		return analysisFor(c.Name, 5), nil
	})
	repo := &fakeRepo{}

	result, err := NewOrchestrator(bulkDetection("A", "B", "C"), analyzer, repo, nil).
		Run(context.Background(), bundleOf(3), nil)
	require.Error(t, err)
	assert.False(t, IsCaseFailure(err))
	assert.Equal(t, 1, result.Succeeded())
	assert.Equal(t, []string{"A"}, repo.names())
}

func storedNames(t *testing.T, repo *db.AnalysisRepository) []string {
	t.Helper()
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	var names []string
	for _, s := range list {
		names = append(names, s.CaseName)
	}
	return names
}
