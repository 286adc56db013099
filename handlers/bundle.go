package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"evidex/intake"
	"evidex/models"
	"evidex/pipeline"
)

// submitRequest is the JSON form of a submission, used when files were
// uploaded beforehand and are referenced by key.
type submitRequest struct {
	Documents string   `json:"documents"`
	PDFKeys   []string `json:"pdfKeys"`
	AudioKeys []string `json:"audioKeys"`
}

// readBundle accepts either multipart form data or a JSON body and returns
// a non-empty bundle.
func (a *API) readBundle(w http.ResponseWriter, r *http.Request) (*models.RawDocumentBundle, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.requestLimit())

	var req *intake.Request
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body submitRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, &pipeline.ValidationError{Reason: fmt.Sprintf("invalid JSON body: %v", err)}
		}
		req = &intake.Request{Text: body.Documents, DocumentKeys: body.PDFKeys, AudioKeys: body.AudioKeys}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, wrapFormError(err)
		}
		defer r.MultipartForm.RemoveAll()
		var err error
		if req, err = a.Intake.FromMultipart(r.MultipartForm); err != nil {
			return nil, err
		}
	default:
		return nil, &pipeline.ValidationError{Reason: "expected multipart/form-data or application/json"}
	}

	bundle, err := a.Intake.Build(r.Context(), req)
	if err != nil {
		return nil, err
	}
	if bundle.IsEmpty() {
		return nil, &pipeline.ValidationError{Reason: "please upload at least one document or audio file"}
	}
	return bundle, nil
}

func wrapFormError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &pipeline.ValidationError{Reason: fmt.Sprintf("invalid form data: %v", err)}
}
