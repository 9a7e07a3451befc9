package scanning

import (
	"context"
	"image"
)

// Options configures a single page recognition
type Options struct {
	// PageSegMode is the tesseract page segmentation mode; 6 assumes a
	// single uniform block of text
	PageSegMode int
	// PreserveInterwordSpaces keeps runs of spaces between words
	PreserveInterwordSpaces bool
	// Invert enables automatic polarity inversion of light-on-dark text
	Invert bool
	// Blacklist lists glyphs the engine must never emit
	Blacklist string
}

// DefaultOptions returns the settings used for scanned regulatory filings
func DefaultOptions() Options {
	return Options{
		PageSegMode:             6,
		PreserveInterwordSpaces: true,
		Invert:                  false,
		Blacklist:               "|~`",
	}
}

// Engine defines the interface for page text recognition
type Engine interface {
	// Recognize returns the text on one page image, possibly empty
	Recognize(ctx context.Context, img image.Image, opts Options) (string, error)
	// Close releases any resources held by the engine
	Close() error
}
