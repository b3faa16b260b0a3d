package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart is a multipart/form-data body. The request's Content-Type is taken
// from the writer so the boundary always matches the payload.
type Multipart struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	closed bool
}

func NewMultipart() *Multipart {
	m := &Multipart{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

// Field adds a plain form field.
func (m *Multipart) Field(name, value string) error {
	if m.closed {
		return fmt.Errorf("multipart: field %q added after send", name)
	}
	return m.w.WriteField(name, value)
}

// File adds a file part with an explicit content type.
func (m *Multipart) File(field, filename, contentType string, r io.Reader) error {
	if m.closed {
		return fmt.Errorf("multipart: file %q added after send", field)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := m.w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}

func (m *Multipart) finish() (string, error) {
	if !m.closed {
		if err := m.w.Close(); err != nil {
			return "", err
		}
		m.closed = true
	}
	return m.w.FormDataContentType(), nil
}

func (m *Multipart) reader() io.Reader {
	return bytes.NewReader(m.buf.Bytes())
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
