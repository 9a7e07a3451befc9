package extraction

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer opens a document for page rendering
type Rasterizer interface {
	Open(data []byte) (RasterDocument, error)
}

// RasterDocument renders pages of an open document. Implementations need
// not be safe for concurrent use.
type RasterDocument interface {
	NumPage() int
	Render(page int, dpi float64) (image.Image, error)
	Close() error
}

// FitzRasterizer implements Rasterizer with MuPDF
type FitzRasterizer struct{}

type fitzDocument struct {
	doc *fitz.Document
}

// Open loads data into MuPDF
func (FitzRasterizer) Open(data []byte) (RasterDocument, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

func (d *fitzDocument) NumPage() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) Render(page int, dpi float64) (image.Image, error) {
	img, err := d.doc.ImageDPI(page, dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page %d: %w", page+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
