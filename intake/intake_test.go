package intake

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"evidex/blob"
	"evidex/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a well-formed PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	buf.WriteString("%PDF-1.4\n")
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// mp3Header is an ID3 tag prefix, enough for content sniffing.
var mp3Header = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0}, 64)...)

func TestBuildAssignsDocumentThenAudioIndices(t *testing.T) {
	in := New(nil, 50<<20, nil)

	req := &Request{
		Text: "stmt A",
		Documents: []Upload{
			{Name: "a.pdf", Data: minimalPDF(2)},
			{Name: "b.txt", Data: []byte("Witness statement of Bob.")},
			{Name: "c.pdf", Data: minimalPDF(1)},
		},
		Audio: []Upload{
			{Name: "hearing.mp3", ContentType: "audio/mpeg", Data: mp3Header},
			{Name: "call.wav", ContentType: "audio/x-wav", Data: []byte("RIFF....WAVEfmt ")},
		},
	}

	bundle, err := in.Build(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, bundle.Files, 5)
	assert.Equal(t, "stmt A", bundle.Text)

	for i, f := range bundle.Files {
		assert.Equal(t, i, f.Index)
	}
	assert.Equal(t, models.KindPDF, bundle.Files[0].Kind)
	assert.Equal(t, 2, bundle.Files[0].Pages)
	assert.Equal(t, models.KindTXT, bundle.Files[1].Kind)
	assert.Equal(t, "Witness statement of Bob.", bundle.Files[1].Text)
	assert.True(t, bundle.Files[1].IsTextual())
	assert.Equal(t, models.KindAudio, bundle.Files[3].Kind)
	assert.Equal(t, "audio/mpeg", bundle.Files[3].MIMEType)
	assert.Equal(t, "audio/wav", bundle.Files[4].MIMEType)

	assert.Len(t, bundle.Documents(), 3)
	assert.Len(t, bundle.Audio(), 2)
}

func TestBuildRejectsBadFiles(t *testing.T) {
	in := New(nil, 1<<20, nil)

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "corrupt pdf", req: &Request{Documents: []Upload{{Name: "x.pdf", Data: []byte("%PDF-1.4\nnot really")}}}},
		{name: "binary document", req: &Request{Documents: []Upload{{Name: "x.bin", Data: []byte{0x00, 0x01, 0xff, 0xfe, 0x00}}}}},
		{name: "empty document", req: &Request{Documents: []Upload{{Name: "x.txt"}}}},
		{name: "too large", req: &Request{Documents: []Upload{{Name: "x.txt", Data: bytes.Repeat([]byte("a"), 2<<20)}}}},
		{name: "unsupported audio", req: &Request{Audio: []Upload{{Name: "x.flac", ContentType: "audio/flac", Data: []byte("fLaC\x00\x00\x00\x22")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := in.Build(context.Background(), tt.req)
			var fe *FileError
			require.ErrorAs(t, err, &fe)
		})
	}
}

func TestBuildFetchesBlobKeys(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(ctx, "pdf-files/1-notes.txt", []byte("Notes on Carol."), "text/plain")
	require.NoError(t, err)

	in := New(store, 50<<20, nil)
	bundle, err := in.Build(ctx, &Request{
		Documents:    []Upload{{Name: "inline.txt", Data: []byte("Inline.")}},
		DocumentKeys: []string{"pdf-files/1-notes.txt"},
	})
	require.NoError(t, err)
	require.Len(t, bundle.Files, 2)
	assert.Equal(t, "1-notes.txt", bundle.Files[1].Name)
	assert.Equal(t, 1, bundle.Files[1].Index)

	_, err = in.Build(ctx, &Request{DocumentKeys: []string{"pdf-files/missing.txt"}})
	var fe *FileError
	require.ErrorAs(t, err, &fe)
}

func TestAudioType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"audio/mpeg", "audio/mpeg", true},
		{"audio/mp3", "audio/mpeg", true},
		{"Audio/WAV", "audio/wav", true},
		{"audio/ogg; codecs=opus", "audio/ogg", true},
		{"video/webm", "audio/webm", true},
		{"audio/flac", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := AudioType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFromMultipart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField(FieldText, "Case notes"))
	require.NoError(t, w.WriteField(FieldAudioKeys, "audio-files/1-a.mp3"))
	require.NoError(t, w.WriteField(FieldAudioKeys, "  "))

	fw, err := w.CreateFormFile(FieldDocuments, "a.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("doc"))
	require.NoError(t, err)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="audioFiles"; filename="h.mp3"`)
	h.Set("Content-Type", "audio/mpeg")
	pw, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = pw.Write(mp3Header)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(10<<20))

	req, err := New(nil, 50<<20, nil).FromMultipart(r.MultipartForm)
	require.NoError(t, err)
	assert.Equal(t, "Case notes", req.Text)
	assert.Equal(t, []string{"audio-files/1-a.mp3"}, req.AudioKeys)
	require.Len(t, req.Documents, 1)
	assert.Equal(t, "a.txt", req.Documents[0].Name)
	require.Len(t, req.Audio, 1)
	assert.Equal(t, "audio/mpeg", req.Audio[0].ContentType)
}
