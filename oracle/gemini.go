package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiConfig holds the settings for the Gemini adapter.
type GeminiConfig struct {
	APIKey string
	// Backend is "gemini" or "vertex".
	Backend  string
	Project  string
	Location string
	Model    string
	Timeout  time.Duration
	// RequestsPerMinute throttles calls; 0 disables throttling.
	RequestsPerMinute int
}

// Gemini is an Oracle backed by the genai client. The client is built once
// and shared by every call.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGemini creates the genai client for the configured backend.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	cc := &genai.ClientConfig{}
	switch cfg.Backend {
	case "vertex":
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	default:
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &OracleError{Reason: ReasonClient, Err: fmt.Errorf("failed to create genai client: %w", err)}
	}

	if logger == nil {
		logger = slog.Default()
	}

	g := &Gemini{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "oracle", "backend", cfg.Backend),
	}
	if cfg.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return g, nil
}

// Generate sends one request and returns the response text.
func (g *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", &OracleError{Reason: ReasonCall, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, buildContents(req), buildConfig(req))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("Gemini call timed out", "model", model, "timeout", g.timeout)
			return "", &OracleError{Reason: ReasonTimeout, Err: err}
		}
		g.logger.Error("Gemini call failed", "model", model, "error", err)
		return "", &OracleError{Reason: ReasonCall, Err: err}
	}

	text := resp.Text()
	if text == "" {
		g.logger.Warn("Gemini returned an empty response", "model", model)
		return "", &OracleError{Reason: ReasonEmpty}
	}

	g.logger.Debug("Gemini call complete", "model", model, "parts", len(req.Parts), "elapsed", time.Since(start))
	return text, nil
}

func buildContents(req *Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Parts)+1)
	if req.Prompt != "" {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}
	for _, p := range req.Parts {
		if p.IsInline() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func buildConfig(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: req.Temperature,
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}
	return cfg
}
