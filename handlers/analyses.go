package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := a.Analyses.List(r.Context())
	if err != nil {
		a.fail(w, r, "Failed to fetch analyses", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	detail, err := a.Analyses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, "Failed to fetch analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// DeleteAnalysis removes an analysis and all of its child rows.
func (a *API) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := a.Analyses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, "Failed to delete analysis", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
