package models

import "strings"

// FileKind classifies an uploaded file
type FileKind string

const (
	KindPDF   FileKind = "pdf"
	KindDOCX  FileKind = "docx"
	KindTXT   FileKind = "txt"
	KindAudio FileKind = "audio"
)

// OpaqueFile is one uploaded file after intake.
//
// Index is assigned once by intake and never recomputed: documents occupy
// [0, docCount) and audio occupies [docCount, docCount+audioCount).
type OpaqueFile struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	MIMEType string   `json:"mimeType"`
	Kind     FileKind `json:"kind"`
	// Data holds the raw bytes for binary payloads.
	Data []byte `json:"-"`
	// Text holds decoded content for textual payloads.
	Text string `json:"-"`
	// Pages is the PDF page count when known.
	Pages int `json:"pages,omitempty"`
}

// IsTextual reports whether the file is forwarded to the oracle as inline text.
func (f OpaqueFile) IsTextual() bool {
	return f.Kind == KindTXT || strings.HasPrefix(f.MIMEType, "text/")
}

// IsAudio reports whether the file belongs to the audio index range.
func (f OpaqueFile) IsAudio() bool {
	return f.Kind == KindAudio
}

// RawDocumentBundle is a caller's whole submission before partitioning.
type RawDocumentBundle struct {
	Text  string       `json:"text"`
	Files []OpaqueFile `json:"files"`
}

// IsEmpty reports whether the bundle has neither text nor files.
func (b RawDocumentBundle) IsEmpty() bool {
	return strings.TrimSpace(b.Text) == "" && len(b.Files) == 0
}

// Documents returns the non-audio files in index order.
func (b RawDocumentBundle) Documents() []OpaqueFile {
	var docs []OpaqueFile
	for _, f := range b.Files {
		if !f.IsAudio() {
			docs = append(docs, f)
		}
	}
	return docs
}

// Audio returns the audio files in index order.
func (b RawDocumentBundle) Audio() []OpaqueFile {
	var audio []OpaqueFile
	for _, f := range b.Files {
		if f.IsAudio() {
			audio = append(audio, f)
		}
	}
	return audio
}

// CaseBundle is the slice of a submission that belongs to one case.
// Name is empty when no detector name applies.
type CaseBundle struct {
	Name  string
	Text  string
	Files []OpaqueFile
}

// IsEmpty reports whether the case has nothing to analyze.
func (c CaseBundle) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Files) == 0
}

// DetectionResult is the oracle's answer to "one case or many".
type DetectionResult struct {
	MultiplePeople bool          `json:"multiplePeople"`
	People         []PersonGroup `json:"people"`
}

// IsBulk reports whether the result calls for one analysis per person.
func (d DetectionResult) IsBulk() bool {
	return d.MultiplePeople && len(d.People) > 1
}

type PersonGroup struct {
	Name        string `json:"name"`
	FileIndices []int  `json:"fileIndices"`
}
