// Package oracle wraps the generative model that produces detection results,
// transcripts and case analyses.
package oracle

import (
	"context"
	"fmt"
)

// Oracle turns a prompt plus attachments into text. When Request.Schema is
// set the text is expected to be JSON matching it, but callers must still
// parse and validate it.
type Oracle interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req *Request) (string, error)

func (f Func) Generate(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// Request is one oracle call. Prompt goes first, then Parts in order.
type Request struct {
	Prompt      string
	Parts       []Part
	Schema      *Schema
	Temperature *float32
	// Model overrides the adapter's default model when set.
	Model string
}

// Part is either inline text or an opaque binary attachment.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// Text returns a text part.
func Text(s string) Part {
	return Part{Text: s}
}

// Inline returns a binary attachment part.
func Inline(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

// IsInline reports whether the part carries binary data.
func (p Part) IsInline() bool {
	return p.MIMEType != ""
}

// Failure reasons carried by OracleError.
const (
	ReasonCall    = "call_failed"
	ReasonTimeout = "timeout"
	ReasonEmpty   = "empty_response"
	ReasonRefusal = "refusal"
	ReasonClient  = "client_unavailable"
)

// OracleError is returned for network, auth, timeout and empty-body failures.
type OracleError struct {
	Reason string
	Err    error
}

func (e *OracleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("oracle: %s", e.Reason)
	}
	return fmt.Sprintf("oracle: %s: %v", e.Reason, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}
