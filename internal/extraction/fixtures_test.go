package extraction

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	. "github.com/onsi/gomega"

	"github.com/zombor/penalty-tracker/internal/scanning"
)

// buildPDF renders one PDF page per entry; each line of an entry becomes
// its own text run
func buildPDF(pages ...string) []byte {
	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetFont("Helvetica", "", 11)
	for _, page := range pages {
		pdf.AddPage()
		for _, line := range strings.Split(page, "\n") {
			pdf.Cell(0, 6, line+" ")
			pdf.Ln(6)
		}
	}

	var buf bytes.Buffer
	Expect(pdf.Output(&buf)).To(Succeed())
	return buf.Bytes()
}

// mockFetcher is a mock implementation of Fetcher
type mockFetcher struct {
	data  []byte
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// mockReader is a mock implementation of StructuredReader
type mockReader struct {
	pages []PageText
	err   error
	calls int
}

func (m *mockReader) Pages(data []byte) ([]PageText, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pages, nil
}

// mockRasterizer hands out mockDocuments whose page i is an image i+1
// pixels wide, so engines can tell pages apart
type mockRasterizer struct {
	pages     int
	renderErr map[int]error
	openErr   error
	opens     int
	closed    bool
	dpi       float64
}

func (m *mockRasterizer) Open(data []byte) (RasterDocument, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &mockDocument{r: m}, nil
}

type mockDocument struct {
	r *mockRasterizer
}

func (d *mockDocument) NumPage() int { return d.r.pages }

func (d *mockDocument) Render(page int, dpi float64) (image.Image, error) {
	d.r.dpi = dpi
	if err := d.r.renderErr[page]; err != nil {
		return nil, err
	}
	return imaging.New(page+1, 2, color.White), nil
}

func (d *mockDocument) Close() error {
	d.r.closed = true
	return nil
}

// mockEngine returns texts[page] for the page identified by image width.
// Earlier pages are delayed longer so they finish last.
type mockEngine struct {
	mu       sync.Mutex
	texts    map[int]string
	errs     map[int]error
	delay    time.Duration
	calls    int
	finished []int
	opts     scanning.Options
}

func (m *mockEngine) Recognize(ctx context.Context, img image.Image, opts scanning.Options) (string, error) {
	page := img.Bounds().Dx() - 1
	if m.delay > 0 {
		time.Sleep(m.delay * time.Duration(10-page%10))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.opts = opts
	m.finished = append(m.finished, page)
	if err := m.errs[page]; err != nil {
		return "", err
	}
	return m.texts[page], nil
}

func (m *mockEngine) Close() error { return nil }

var errBoom = errors.New("boom")

// filler returns a line of prose with no lone digits or bare dollar signs
func filler(n int) string {
	const sentence = "The Department finds that the facility operated without the required permit. "
	return strings.Repeat(sentence, n)
}
