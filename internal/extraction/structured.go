package extraction

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// PageText is the outcome of extracting one page. Err is set when the page
// produced nothing usable.
type PageText struct {
	Index int
	Text  string
	Err   error
}

// StructuredReader returns the embedded text of each page in order
type StructuredReader interface {
	Pages(data []byte) ([]PageText, error)
}

// PDFReader implements StructuredReader over the PDF text layer
type PDFReader struct{}

// Pages opens data as a PDF and returns each page's plain text, NFKC
// normalized so ligatures and compatibility glyphs match plain patterns.
func (PDFReader) Pages(data []byte) (pages []PageText, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	n := r.NumPage()
	pages = make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, PageText{Index: i - 1, Err: errEmptyPage})
			continue
		}
		txt, perr := p.GetPlainText(nil)
		if perr != nil {
			pages = append(pages, PageText{Index: i - 1, Err: fmt.Errorf("reading page text: %w", perr)})
			continue
		}
		pages = append(pages, PageText{Index: i - 1, Text: norm.NFKC.String(txt)})
	}
	return pages, nil
}
