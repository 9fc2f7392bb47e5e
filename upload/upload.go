// Package upload pulls the audio file out of a multipart request and
// enforces the size limit on the bytes actually received.
package upload

import (
	"bytes"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kbukum/speakerembed/errors"
)

// Validation messages.
const (
	MsgNoFile        = "No audio file provided in request"
	MsgEmptyFilename = "Empty filename"
)

// Request is a validated upload held in memory.
type Request struct {
	// Filename is the base name the client sent.
	Filename string
	// Size is the number of bytes read.
	Size     int64
	Data     []byte
}

// Ext returns the lowercased filename extension with its dot, or "".
func (r *Request) Ext() string {
	return strings.ToLower(filepath.Ext(r.Filename))
}

// Reader returns a reader over the uploaded bytes.
func (r *Request) Reader() io.Reader {
	return bytes.NewReader(r.Data)
}

// FromMultipart streams the multipart body until it finds field and reads
// at most maxBytes+1 bytes of it. Content-Length and part headers are not
// trusted for the size check.
func FromMultipart(r *http.Request, field string, maxBytes int64) (*Request, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.Validation(MsgNoFile).WithCause(err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errors.Validation(MsgNoFile)
		}
		if err != nil {
			return nil, bodyError(err, maxBytes)
		}

		filename, isFile := partFilename(part.Header.Get("Content-Disposition"))
		if part.FormName() != field || !isFile {
			part.Close()
			continue
		}
		defer part.Close()

		if filename == "" {
			return nil, errors.Validation(MsgEmptyFilename)
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(part, maxBytes+1))
		if err != nil {
			return nil, bodyError(err, maxBytes)
		}
		if n > maxBytes {
			return nil, errors.PayloadTooLarge(maxBytes)
		}
		return &Request{Filename: filename, Size: n, Data: buf.Bytes()}, nil
	}
}

// partFilename reports the base filename and whether the part carries a
// filename parameter at all; parts without one are plain form values.
// Only a truly empty name is rejected, so "   " is a valid filename.
func partFilename(disposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false
	}
	name, ok := params["filename"]
	if !ok {
		return "", false
	}
	if name == "" {
		return "", true
	}
	// Clients on Windows send full paths.
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return "", true
	}
	return name, true
}

func bodyError(err error, maxBytes int64) error {
	var mbe *http.MaxBytesError
	if stderrors.As(err, &mbe) {
		return errors.PayloadTooLarge(maxBytes)
	}
	return errors.Validation("Malformed multipart request").WithCause(err)
}
