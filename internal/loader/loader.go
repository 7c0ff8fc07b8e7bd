// Package loader extracts plain text from PDF files, one section per page.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNotPDF is returned when a file does not start with the PDF header.
var ErrNotPDF = errors.New("not a PDF file")

var magic = []byte("%PDF-")

// Section is the text of one PDF page.
type Section struct {
	Page int
	Text string
}

// Sniff reports ErrNotPDF unless r starts with the %PDF- header.
func Sniff(r io.Reader) error {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return ErrNotPDF
	}
	if !bytes.Equal(head, magic) {
		return ErrNotPDF
	}
	return nil
}

// SniffFile opens path and checks its header.
func SniffFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Sniff(f)
}

// Load returns the text of every page of the PDF at path that has
// non-blank text. Pages are numbered from 1.
func Load(path string) (sections []Section, err error) {
	if err := SniffFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			sections = nil
			err = fmt.Errorf("loading %s: malformed pdf: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extracting page %d of %s: %w", i, path, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, Section{Page: i, Text: text})
	}
	return sections, nil
}
