package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"evidex/models"
	"evidex/oracle"
	"evidex/prompts"

	"github.com/go-playground/validator/v10"
)

const transcriptionTemperature = float32(0.1)

// Transcriber turns audio files into speaker-labeled transcripts.
type Transcriber struct {
	oracle   oracle.Oracle
	model    string
	validate *validator.Validate
	logger   *slog.Logger
}

// NewTranscriber uses model for transcription calls; empty means the
// oracle's default model.
func NewTranscriber(o oracle.Oracle, model string, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{
		oracle:   o,
		model:    model,
		validate: validator.New(),
		logger:   logger.With("component", "transcriber"),
	}
}

// Transcribe returns the oracle's free-text transcript for one audio file.
func (t *Transcriber) Transcribe(ctx context.Context, f models.OpaqueFile) (string, error) {
	logCtx := t.logger.With("file", f.Name, "mimeType", f.MIMEType)
	logCtx.Info("Transcribing audio file", "bytes", len(f.Data))

	temp := transcriptionTemperature
	text, err := t.oracle.Generate(ctx, &oracle.Request{
		Parts: []oracle.Part{
			oracle.Inline(f.Data, f.MIMEType),
			oracle.Text(prompts.Transcription),
		},
		Temperature: &temp,
		Model:       t.model,
	})
	if err != nil {
		logCtx.Error("Transcription call failed", "error", err)
		return "", &TranscriptionError{FileName: f.Name, Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &TranscriptionError{FileName: f.Name, Err: &oracle.OracleError{Reason: oracle.ReasonEmpty}}
	}
	if oracle.IsRefusal(text) {
		logCtx.Error("Transcription refused", "response", truncate(text, 200))
		return "", &TranscriptionError{FileName: f.Name, Err: &oracle.OracleError{Reason: oracle.ReasonRefusal}}
	}
	return text, nil
}

// TranscriptEntry is one diarized segment.
type TranscriptEntry struct {
	Timestamp string `json:"timestamp" validate:"required"`
	Speaker   string `json:"speaker" validate:"required"`
	Dialogue  string `json:"dialogue" validate:"required"`
}

// Transcript is a structured transcription of one audio file.
type Transcript struct {
	FileName            string            `json:"fileName"`
	Entries             []TranscriptEntry `json:"entries"`
	FormattedTranscript string            `json:"formattedTranscript"`
	SpeakerCount        int               `json:"speakerCount"`
	Duration            string            `json:"duration"`
}

// TranscribeDiarized asks for a JSON array of entries. Entries missing a
// field are dropped; a transcript with no usable entries is an error.
func (t *Transcriber) TranscribeDiarized(ctx context.Context, f models.OpaqueFile) (*Transcript, error) {
	logCtx := t.logger.With("file", f.Name, "mimeType", f.MIMEType)

	temp := transcriptionTemperature
	text, err := t.oracle.Generate(ctx, &oracle.Request{
		Parts: []oracle.Part{
			oracle.Inline(f.Data, f.MIMEType),
			oracle.Text(prompts.DiarizedTranscription),
		},
		Schema:      transcriptSchema,
		Temperature: &temp,
		Model:       t.model,
	})
	if err != nil {
		return nil, &TranscriptionError{FileName: f.Name, Err: err}
	}

	var raw []TranscriptEntry
	if err := json.Unmarshal([]byte(oracle.ExtractJSON(text)), &raw); err != nil {
		logCtx.Error("Failed to parse transcript", "error", err, "response", truncate(text, 500))
		return nil, &TranscriptionError{FileName: f.Name, Err: fmt.Errorf("the AI returned a response in an unexpected format: %w", err)}
	}

	entries := make([]TranscriptEntry, 0, len(raw))
	for _, e := range raw {
		if t.validate.Struct(e) == nil {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return nil, &TranscriptionError{FileName: f.Name, Err: errors.New("no valid transcription entries found")}
	}

	speakers := make(map[string]struct{})
	for _, e := range entries {
		speakers[e.Speaker] = struct{}{}
	}

	logCtx.Info("Transcription complete", "entries", len(entries), "speakers", len(speakers))
	return &Transcript{
		FileName:            f.Name,
		Entries:             entries,
		FormattedTranscript: FormatTranscript(entries),
		SpeakerCount:        len(speakers),
		Duration:            entries[len(entries)-1].Timestamp,
	}, nil
}

// FormatTranscript renders entries for reading, with a header line each
// time the speaker changes.
func FormatTranscript(entries []TranscriptEntry) string {
	var b strings.Builder
	b.WriteString("=== AUDIO TRANSCRIPT ===\n\n")

	current := ""
	for _, e := range entries {
		if e.Speaker != current {
			fmt.Fprintf(&b, "\n[%s] %s:\n", e.Timestamp, e.Speaker)
			current = e.Speaker
		}
		b.WriteString(e.Dialogue)
		b.WriteString("\n")
	}

	b.WriteString("\n=== END OF TRANSCRIPT ===")
	return b.String()
}
