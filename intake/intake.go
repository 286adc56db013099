// Package intake turns uploaded form data into a RawDocumentBundle.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"sync"
	"unicode/utf8"

	"evidex/blob"
	"evidex/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Form field names accepted by FromMultipart.
const (
	FieldText         = "documents"
	FieldDocuments    = "pdfFiles"
	FieldAudio        = "audioFiles"
	FieldDocumentKeys = "pdfKeys"
	FieldAudioKeys    = "audioKeys"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// AcceptedAudioTypes lists the audio MIME types the oracle is sent.
var AcceptedAudioTypes = []string{
	"audio/mpeg",
	"audio/wav",
	"audio/mp4",
	"audio/x-m4a",
	"audio/webm",
	"audio/ogg",
}

var audioAliases = map[string]string{
	"audio/mp3":       "audio/mpeg",
	"audio/x-wav":     "audio/wav",
	"audio/wave":      "audio/wav",
	"audio/vnd.wave":  "audio/wav",
	"audio/m4a":       "audio/x-m4a",
	"video/mp4":       "audio/mp4",
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
}

// FileError reports a file that cannot be accepted.
type FileError struct {
	Name   string
	Reason string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %q: %s", e.Name, e.Reason)
}

// Upload is one file as received, before classification.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Request is a submission before intake. Keys reference previously
// uploaded blobs and are appended after inline uploads of the same kind.
type Request struct {
	Text         string
	Documents    []Upload
	Audio        []Upload
	DocumentKeys []string
	AudioKeys    []string
}

// Intake classifies uploads and assigns stable indices.
type Intake struct {
	blobs        blob.Store
	maxFileBytes int64
	logger       *slog.Logger
}

var disableConfigDir sync.Once

func New(blobs blob.Store, maxFileBytes int64, logger *slog.Logger) *Intake {
	disableConfigDir.Do(api.DisableConfigDir)
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		blobs:        blobs,
		maxFileBytes: maxFileBytes,
		logger:       logger.With("component", "intake"),
	}
}

// FromMultipart reads a parsed multipart form into a Request.
func (in *Intake) FromMultipart(form *multipart.Form) (*Request, error) {
	req := &Request{}
	if v := form.Value[FieldText]; len(v) > 0 {
		req.Text = v[0]
	}
	req.DocumentKeys = nonEmpty(form.Value[FieldDocumentKeys])
	req.AudioKeys = nonEmpty(form.Value[FieldAudioKeys])

	var err error
	if req.Documents, err = in.readFiles(form.File[FieldDocuments]); err != nil {
		return nil, err
	}
	if req.Audio, err = in.readFiles(form.File[FieldAudio]); err != nil {
		return nil, err
	}
	return req, nil
}

func (in *Intake) readFiles(headers []*multipart.FileHeader) ([]Upload, error) {
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		if in.maxFileBytes > 0 && fh.Size > in.maxFileBytes {
			return nil, &FileError{Name: fh.Filename, Reason: fmt.Sprintf("exceeds the %d MB limit", in.maxFileBytes>>20)}
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

// Build classifies every file and numbers documents first, then audio,
// so documents occupy [0, docCount) and audio [docCount, docCount+audioCount).
func (in *Intake) Build(ctx context.Context, req *Request) (*models.RawDocumentBundle, error) {
	docs := append([]Upload(nil), req.Documents...)
	audio := append([]Upload(nil), req.Audio...)

	for _, key := range req.DocumentKeys {
		u, err := in.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		docs = append(docs, u)
	}
	for _, key := range req.AudioKeys {
		u, err := in.fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		audio = append(audio, u)
	}

	bundle := &models.RawDocumentBundle{Text: req.Text}
	for _, u := range docs {
		f, err := in.classifyDocument(u)
		if err != nil {
			return nil, err
		}
		f.Index = len(bundle.Files)
		bundle.Files = append(bundle.Files, f)
	}
	for _, u := range audio {
		f, err := in.classifyAudio(u)
		if err != nil {
			return nil, err
		}
		f.Index = len(bundle.Files)
		bundle.Files = append(bundle.Files, f)
	}

	in.logger.Info("Bundle assembled",
		"textBytes", len(req.Text),
		"documents", len(docs),
		"audio", len(audio))
	return bundle, nil
}

func (in *Intake) fetch(ctx context.Context, key string) (Upload, error) {
	if in.blobs == nil {
		return Upload{}, &FileError{Name: key, Reason: "blob references are not enabled"}
	}
	data, err := in.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return Upload{}, &FileError{Name: key, Reason: "uploaded file not found"}
	}
	if err != nil {
		return Upload{}, fmt.Errorf("failed to fetch blob %s: %w", key, err)
	}
	name := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		name = key[i+1:]
	}
	return Upload{Name: name, Data: data}, nil
}

func (in *Intake) checkSize(u Upload) error {
	if len(u.Data) == 0 {
		return &FileError{Name: u.Name, Reason: "file is empty"}
	}
	if in.maxFileBytes > 0 && int64(len(u.Data)) > in.maxFileBytes {
		return &FileError{Name: u.Name, Reason: fmt.Sprintf("exceeds the %d MB limit", in.maxFileBytes>>20)}
	}
	return nil
}

func (in *Intake) classifyDocument(u Upload) (models.OpaqueFile, error) {
	if err := in.checkSize(u); err != nil {
		return models.OpaqueFile{}, err
	}

	mtype := mimetype.Detect(u.Data)
	f := models.OpaqueFile{Name: u.Name}

	switch {
	case mtype.Is(mimePDF):
		pages, err := pageCount(u.Data)
		if err != nil {
			return models.OpaqueFile{}, &FileError{Name: u.Name, Reason: "not a readable PDF: " + err.Error()}
		}
		f.Kind = models.KindPDF
		f.MIMEType = mimePDF
		f.Data = u.Data
		f.Pages = pages
	case mtype.Is(mimeDOCX) || (strings.HasSuffix(strings.ToLower(u.Name), ".docx") && mtype.Is("application/zip")):
		f.Kind = models.KindDOCX
		f.MIMEType = mimeDOCX
		f.Data = u.Data
	case isText(mtype) && utf8.Valid(u.Data):
		f.Kind = models.KindTXT
		f.MIMEType = mimeText
		f.Text = string(u.Data)
	default:
		return models.OpaqueFile{}, &FileError{Name: u.Name, Reason: fmt.Sprintf("unsupported document type %s", mtype.String())}
	}
	return f, nil
}

func (in *Intake) classifyAudio(u Upload) (models.OpaqueFile, error) {
	if err := in.checkSize(u); err != nil {
		return models.OpaqueFile{}, err
	}

	mt, ok := AudioType(u.ContentType)
	if !ok {
		mt, ok = AudioType(mimetype.Detect(u.Data).String())
	}
	if !ok {
		return models.OpaqueFile{}, &FileError{Name: u.Name, Reason: "unsupported audio format, accepted formats: MP3, WAV, M4A, WEBM, OGG"}
	}

	return models.OpaqueFile{
		Name:     u.Name,
		Kind:     models.KindAudio,
		MIMEType: mt,
		Data:     u.Data,
	}, nil
}

// AudioType normalizes a MIME type and reports whether it is accepted.
func AudioType(contentType string) (string, bool) {
	mt := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if alias, ok := audioAliases[mt]; ok {
		mt = alias
	}
	for _, accepted := range AcceptedAudioTypes {
		if mt == accepted {
			return mt, true
		}
	}
	return "", false
}

// Check classifies a single upload outside a bundle, as audio or as a
// document. The returned file carries no index.
func (in *Intake) Check(u Upload, audio bool) (models.OpaqueFile, error) {
	if audio {
		return in.classifyAudio(u)
	}
	return in.classifyDocument(u)
}

// DetectAudio classifies a single audio upload outside a bundle.
func (in *Intake) DetectAudio(u Upload) (models.OpaqueFile, error) {
	return in.classifyAudio(u)
}

// isText reports whether the detected type is text/plain or derives from it,
// so JSON, CSV and similar text files are inlined too.
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(mimeText) {
			return true
		}
	}
	return false
}

func pageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
