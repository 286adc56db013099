package handlers

import (
	"fmt"
	"io"
	"net/http"

	"evidex/intake"
	"evidex/pipeline"
)

const fieldAudioFile = "audioFile"

type transcribeResponse struct {
	Success bool `json:"success"`
	*pipeline.Transcript
}

type transcribeInfo struct {
	Service         string   `json:"service"`
	Status          string   `json:"status"`
	AcceptedFormats []string `json:"acceptedFormats"`
	MaxFileSize     string   `json:"maxFileSize"`
	Features        []string `json:"features"`
}

// TranscribeInfo describes the transcription service.
func (a *API) TranscribeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, transcribeInfo{
		Service:         "Audio Transcription with Speaker Diarization",
		Status:          "active",
		AcceptedFormats: []string{"MP3", "WAV", "M4A", "WEBM", "OGG"},
		MaxFileSize:     fmt.Sprintf("%dMB", a.MaxUploadBytes>>20),
		Features: []string{
			"Speaker identification and labeling",
			"Timestamp marking",
			"Verbatim transcription",
			"Legal context optimization",
		},
	})
}

// Transcribe returns a diarized transcript of one uploaded audio file.
func (a *API) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.fail(w, r, "Failed to read upload", wrapFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(fieldAudioFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.fail(w, r, "Failed to read upload", err)
		return
	}

	audio, err := a.Intake.DetectAudio(intake.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		a.fail(w, r, "Failed to read upload", err)
		return
	}

	a.logger.Info("Transcribing audio file", "file", audio.Name, "bytes", len(audio.Data))
	transcript, err := a.Transcriber.TranscribeDiarized(r.Context(), audio)
	if err != nil {
		a.logger.Error("Transcription failed", "file", audio.Name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{Success: true, Transcript: transcript})
}
