package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"evidex/submission"
)

// Analyze runs a submission and streams its events as server-sent events.
// The run lives in the submission registry, so it completes and persists
// even if the client goes away; the client can reattach through
// /api/submissions/{id}/events using the X-Submission-Id header.
func (a *API) Analyze(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SSE not supported")
		return
	}

	bundle, err := a.readBundle(w, r)
	if err != nil {
		a.fail(w, r, "Failed to read submission", err)
		return
	}

	sub := a.Submissions.Start(bundle)
	logCtx := a.logger.With("submissionId", sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.Header().Set("X-Submission-Id", sub.ID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	from := 0
	for {
		events, finished, err := sub.Events(r.Context(), from)
		if err != nil {
			logCtx.Info("Client disconnected, submission continues in background")
			return
		}
		for _, e := range events {
			if err := writeSSE(w, e); err != nil {
				logCtx.Info("Failed to write event, submission continues in background", "error", err)
				return
			}
		}
		flusher.Flush()
		from += len(events)
		if finished {
			return
		}
	}
}

func writeSSE(w io.Writer, e submission.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return err
}
