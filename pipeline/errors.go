package pipeline

import "fmt"

// ValidationError rejects a submission before any oracle call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + e.Reason
}

// DetectionError is logged by the detector and never returned to callers.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("case detection failed: %v", e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// AnalysisError is fatal to one case.
type AnalysisError struct {
	CaseName string
	Err      error
}

func (e *AnalysisError) Error() string {
	if e.CaseName == "" {
		return fmt.Sprintf("analysis failed: %v", e.Err)
	}
	return fmt.Sprintf("analysis failed for %s: %v", e.CaseName, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// TranscriptionError is fatal to the case containing the audio file.
type TranscriptionError struct {
	FileName string
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("failed to transcribe audio file %s: %v", e.FileName, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// PersistenceError is fatal to the whole submission.
type PersistenceError struct {
	CaseName string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save analysis for %s: %v", e.CaseName, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
