package handlers

import "net/http"

// Detect runs case detection only.
func (a *API) Detect(w http.ResponseWriter, r *http.Request) {
	bundle, err := a.readBundle(w, r)
	if err != nil {
		a.fail(w, r, "Failed to read submission", err)
		return
	}

	writeJSON(w, http.StatusOK, a.Detector.Detect(r.Context(), bundle))
}
