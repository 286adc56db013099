package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

type createSubmissionResponse struct {
	ID string `json:"id"`
}

// CreateSubmission starts a background run and returns its id.
func (a *API) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	bundle, err := a.readBundle(w, r)
	if err != nil {
		a.fail(w, r, "Failed to read submission", err)
		return
	}

	sub := a.Submissions.Start(bundle)
	w.Header().Set("Location", "/api/submissions/"+sub.ID)
	writeJSON(w, http.StatusAccepted, createSubmissionResponse{ID: sub.ID})
}

func (a *API) GetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.Submissions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}
	writeJSON(w, http.StatusOK, sub.Snapshot())
}

// CancelSubmission stops a run before its next case. Cases already
// persisted are kept.
func (a *API) CancelSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.Submissions.Cancel(id) {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
}

// SubmissionEvents streams a submission over a websocket: every event so
// far, then live events, then a normal close after the result.
func (a *API) SubmissionEvents(w http.ResponseWriter, r *http.Request) {
	sub, ok := a.Submissions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Submission not found")
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only serve to notice the client closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	from := 0
	for {
		events, finished, err := sub.Events(ctx, from)
		if err != nil {
			return
		}
		for _, e := range events {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				a.logger.Info("Websocket client gone", "submissionId", sub.ID, "error", err)
				return
			}
		}
		from += len(events)
		if finished {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			return
		}
	}
}
