// Package pdftext extracts plain text from PDF statements without external
// tools.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSeparator is written between pages, like pdftotext does.
const pageSeparator = "\f"

// Extract returns the text of every page in the PDF read from r, one
// element per page. Pages that cannot be decoded yield an empty string.
// A document the reader cannot make sense of is reported as an error.
func Extract(r io.ReaderAt, size int64) (pages []string, err error) {
	// The pdf package panics on some malformed documents.
	defer func() {
		if v := recover(); v != nil {
			pages, err = nil, fmt.Errorf("pdftext: malformed document: %v", v)
		}
	}()

	rd, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("pdftext: reading document: %w", err)
	}

	n := rd.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := rd.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimRight(text, "\n"))
	}
	return pages, nil
}

// ExtractBytes is like [Extract] for an in-memory document.
func ExtractBytes(data []byte) ([]string, error) {
	return Extract(bytes.NewReader(data), int64(len(data)))
}

// ExtractFile returns the text of the PDF at path with pages separated by
// form feeds.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdftext: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("pdftext: %w", err)
	}
	pages, err := Extract(f, st.Size())
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"+pageSeparator+"\n") + "\n", nil
}

// WriteFile extracts the text of src and writes it to dst.
func WriteFile(src, dst string) error {
	text, err := ExtractFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, []byte(text), 0o644); err != nil {
		return fmt.Errorf("pdftext: writing %s: %w", dst, err)
	}
	return nil
}
