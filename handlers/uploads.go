package handlers

import (
	"io"
	"net/http"
	"time"

	"evidex/blob"
	"evidex/intake"
)

type uploadResponse struct {
	Success  bool   `json:"success"`
	Key      string `json:"key"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Bucket   string `json:"bucket"`
}

// Upload stores one file in the blob store. Form fields: file, and type
// ("pdf" or "audio", default pdf). The content must classify as the
// requested type or the upload is rejected.
func (a *API) Upload(w http.ResponseWriter, r *http.Request) {
	if a.Blobs == nil {
		writeError(w, http.StatusNotImplemented, "Uploads are not enabled")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.fail(w, r, "Failed to read upload", wrapFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	prefix := blob.PrefixPDF
	if r.FormValue("type") == "audio" {
		prefix = blob.PrefixAudio
	}

	data, err := io.ReadAll(file)
	if err != nil {
		a.fail(w, r, "Failed to read upload", err)
		return
	}

	f, err := a.Intake.Check(intake.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, prefix == blob.PrefixAudio)
	if err != nil {
		a.fail(w, r, "Failed to upload file", err)
		return
	}

	key := blob.NewKey(prefix, header.Filename, time.Now())
	url, err := a.Blobs.Put(r.Context(), key, data, f.MIMEType)
	if err != nil {
		a.fail(w, r, "Failed to upload file", err)
		return
	}

	a.logger.Info("File uploaded", "key", key, "bytes", len(data))
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Key:      key,
		FileName: key[len(prefix)+1:],
		URL:      url,
		Bucket:   prefix,
	})
}

// DeleteUpload removes a blob by key.
func (a *API) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	if a.Blobs == nil {
		writeError(w, http.StatusNotImplemented, "Uploads are not enabled")
		return
	}

	key := r.URL.Query().Get("key")
	if err := blob.ValidKey(key); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.Blobs.Delete(r.Context(), key); err != nil {
		a.fail(w, r, "Failed to delete file", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
