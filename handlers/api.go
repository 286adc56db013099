// Package handlers exposes the pipeline over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"evidex/blob"
	"evidex/db"
	"evidex/intake"
	"evidex/middleware"
	"evidex/models"
	"evidex/pipeline"
	"evidex/submission"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// maxFilesPerRequest bounds a request body at this many maximum-size files.
const maxFilesPerRequest = 10

type Detector interface {
	Detect(ctx context.Context, bundle *models.RawDocumentBundle) models.DetectionResult
}

type Transcriber interface {
	TranscribeDiarized(ctx context.Context, f models.OpaqueFile) (*pipeline.Transcript, error)
}

type Analyses interface {
	Get(ctx context.Context, id string) (*models.AnalysisDetail, error)
	List(ctx context.Context) ([]models.AnalysisSummary, error)
	Delete(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on. Blobs may be nil, which
// disables the upload endpoints.
type Deps struct {
	Intake         *intake.Intake
	Detector       Detector
	Transcriber    Transcriber
	Analyses       Analyses
	Submissions    *submission.Registry
	Blobs          blob.Store
	Store          Pinger
	MaxUploadBytes int64
	AllowedOrigins []string
	Logger         *slog.Logger
}

type API struct {
	Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(deps Deps) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &API{Deps: deps, logger: logger.With("component", "http")}
	a.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(a.AllowedOrigins, origin)
		},
	}
	return a
}

// Routes builds the router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(a.logRequests)
	r.Use(middleware.CORS(a.AllowedOrigins))

	r.Get("/health", a.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/detect", a.Detect)
		r.Get("/transcribe", a.TranscribeInfo)
		r.Post("/transcribe", a.Transcribe)

		r.Post("/uploads", a.Upload)
		r.Delete("/uploads", a.DeleteUpload)

		r.Post("/analyze", a.Analyze)

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", a.CreateSubmission)
			r.Get("/{id}", a.GetSubmission)
			r.Delete("/{id}", a.CancelSubmission)
			r.Get("/{id}/events", a.SubmissionEvents)
		})

		r.Route("/analyses", func(r chi.Router) {
			r.Get("/", a.ListAnalyses)
			r.Get("/{id}", a.GetAnalysis)
			r.Delete("/{id}", a.DeleteAnalysis)
		})
	})
	return r
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"dur", time.Since(start),
			"requestId", chimw.GetReqID(r.Context()))
	})
}

func (a *API) requestLimit() int64 {
	return a.MaxUploadBytes * maxFilesPerRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fileErr *intake.FileError
	var validationErr *pipeline.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &fileErr), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, db.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server-side failures and writes the error response.
func (a *API) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(msg, "error", err, "path", r.URL.Path, "requestId", chimw.GetReqID(r.Context()))
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}
