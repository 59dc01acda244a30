package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MultipartEntry is one file part of an upload.
//
// Example:
//
//	entries := []httpclient.MultipartEntry{
//	    {FieldName: "file", FilePath: "/tmp/report.pdf"},
//	    {FieldName: "avatar", FilePath: "file:///tmp/me.png"},
//	}
type MultipartEntry struct {
	// FieldName is the form field name of the part.
	FieldName string

	// FilePath locates the local file, either as a filesystem path or as
	// a file:// URL.
	FilePath string
}

// EntriesFromMap converts a field-name → file mapping into entries sorted
// by field name, so the resulting body is deterministic.
func EntriesFromMap(fields map[string]string) []MultipartEntry {
	entries := make([]MultipartEntry, 0, len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		entries = append(entries, MultipartEntry{FieldName: name, FilePath: fields[name]})
	}
	return entries
}

// MultipartBody is an encoded multipart/form-data body.
type MultipartBody struct {
	// Data is the complete encoded body.
	Data []byte

	// ContentType carries the boundary and must be sent as the request's
	// Content-Type header.
	ContentType string

	// Fields lists the part field names in body order.
	Fields []string
}

// BuildMultipart encodes entries as a multipart/form-data body. Each part
// carries the file's base name as filename and a Content-Type sniffed from
// its content. Entries sharing a field name are all included in order. No
// entries yields a valid body with zero parts.
func BuildMultipart(entries []MultipartEntry) (*MultipartBody, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := make([]string, 0, len(entries))

	for _, entry := range entries {
		if err := writeFilePart(writer, entry); err != nil {
			return nil, fmt.Errorf("multipart field %q: %w", entry.FieldName, err)
		}
		fields = append(fields, entry.FieldName)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	return &MultipartBody{
		Data:        body.Bytes(),
		ContentType: writer.FormDataContentType(),
		Fields:      fields,
	}, nil
}

func writeFilePart(writer *multipart.Writer, entry MultipartEntry) error {
	path, err := resolveFilePath(entry.FilePath)
	if err != nil {
		return err
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detecting content type: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(entry.FieldName), quoteEscaper.Replace(filepath.Base(path))))
	h.Set("Content-Type", mtype.String())

	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = io.Copy(part, f)
	return err
}

// resolveFilePath accepts a plain path or a file:// URL.
func resolveFilePath(ref string) (string, error) {
	if !strings.HasPrefix(ref, "file://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing file url: %w", err)
	}
	return filepath.FromSlash(u.Path), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
