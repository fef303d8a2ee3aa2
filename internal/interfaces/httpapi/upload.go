package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/arisan/internal/usecase"
)

const (
	proofFormField = "proof"
	notesFormField = "notes"
	maxNotesBytes  = 4 * usecase.MaxPaymentNotesLength
	multipartSlack = 64 << 10
)

var allowedProofMIME = []string{"image/jpeg", "image/png"}

type proofUpload struct {
	ContentType string
	Body        io.Reader
	Size        int64
	Notes       string

	buf *bytebufferpool.ByteBuffer
}

// Release returns the upload buffer to the pool. Body must not be read after.
func (u *proofUpload) Release() {
	if u.buf != nil {
		bytebufferpool.Put(u.buf)
		u.buf = nil
	}
}

// readProofUpload streams a multipart body holding one proof image and
// optional notes. The image type is sniffed from content, not trusted from the
// client.
func (h *Handler) readProofUpload(w http.ResponseWriter, r *http.Request) (*proofUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxProofBytes+multipartSlack)
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: expected multipart/form-data: %v", usecase.ErrInvalidInput, err)
	}

	upload := &proofUpload{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			upload.Release()
			return nil, uploadReadError(err)
		}

		switch part.FormName() {
		case proofFormField:
			if upload.buf != nil {
				_ = part.Close()
				upload.Release()
				return nil, fmt.Errorf("%w: only one proof file is allowed", usecase.ErrInvalidInput)
			}
			if err := h.readProofPart(upload, part); err != nil {
				_ = part.Close()
				upload.Release()
				return nil, err
			}
		case notesFormField:
			notes, err := io.ReadAll(io.LimitReader(part, maxNotesBytes+1))
			if err != nil {
				_ = part.Close()
				upload.Release()
				return nil, uploadReadError(err)
			}
			if len(notes) > maxNotesBytes {
				_ = part.Close()
				upload.Release()
				return nil, fmt.Errorf("%w: notes are too long", usecase.ErrInvalidInput)
			}
			upload.Notes = strings.TrimSpace(string(notes))
		}
		_ = part.Close()
	}

	if upload.buf == nil {
		return nil, fmt.Errorf("%w: %s file is required", usecase.ErrInvalidInput, proofFormField)
	}
	return upload, nil
}

func (h *Handler) readProofPart(upload *proofUpload, part *multipart.Part) error {
	buf := bytebufferpool.Get()
	n, err := buf.ReadFrom(io.LimitReader(part, h.maxProofBytes+1))
	if err != nil {
		bytebufferpool.Put(buf)
		return uploadReadError(err)
	}
	if n == 0 {
		bytebufferpool.Put(buf)
		return fmt.Errorf("%w: %s file is empty", usecase.ErrInvalidInput, proofFormField)
	}
	if n > h.maxProofBytes {
		bytebufferpool.Put(buf)
		return fmt.Errorf("%w: %s file exceeds %d bytes", usecase.ErrInvalidInput, proofFormField, h.maxProofBytes)
	}

	detected := mimetype.Detect(buf.B)
	contentType := ""
	for _, allowed := range allowedProofMIME {
		if detected.Is(allowed) {
			contentType = allowed
			break
		}
	}
	if contentType == "" {
		bytebufferpool.Put(buf)
		return fmt.Errorf("%w: %s must be a jpeg or png image, got %s", usecase.ErrInvalidInput, proofFormField, detected.String())
	}

	upload.buf = buf
	upload.ContentType = contentType
	upload.Body = bytes.NewReader(buf.B)
	upload.Size = n
	return nil
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, tooLarge.Limit)
	}
	return fmt.Errorf("%w: read upload: %v", usecase.ErrInvalidInput, err)
}
