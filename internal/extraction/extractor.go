package extraction

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombor/penalty-tracker/internal/scanning"
)

const (
	// DefaultThreshold is the trimmed character count a stage must exceed
	// for its text to count as real content rather than a stray page
	// number or watermark
	DefaultThreshold = 200
	// DefaultDPI renders scanned letter and legal pages sharply enough for OCR
	DefaultDPI = 400
	// DefaultEnhanceFactor is the contrast and sharpness multiplier
	DefaultEnhanceFactor = 2.0
	// DefaultWorkers bounds concurrent page recognitions within one document
	DefaultWorkers = 4

	MethodStructured  = "structured"
	MethodRecognition = "recognition"
)

var errEmptyPage = errors.New("page has no text")

// Config holds extraction policy
type Config struct {
	Threshold     int
	DPI           float64
	EnhanceFactor float64
	Workers       int
	Recognition   scanning.Options
}

// DefaultConfig returns the standard extraction policy
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		DPI:           DefaultDPI,
		EnhanceFactor: DefaultEnhanceFactor,
		Workers:       DefaultWorkers,
		Recognition:   scanning.DefaultOptions(),
	}
}

func (c *Config) defaults() {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	if c.EnhanceFactor <= 0 {
		c.EnhanceFactor = DefaultEnhanceFactor
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Recognition == (scanning.Options{}) {
		c.Recognition = scanning.DefaultOptions()
	}
}

// Result is the text recovered from one document
type Result struct {
	Text   string
	Method string
}

// Stage is one way of turning document bytes into text. Clean, when set,
// is applied only to text the stage produced and that passed the threshold.
type Stage struct {
	Name    string
	Extract func(ctx context.Context, data []byte) string
	Clean   func(text string) string
}

// Extractor fetches a document and runs its stages in order until one
// yields enough text
type Extractor struct {
	cfg     Config
	fetcher Fetcher
	stages  []Stage
	logger  *slog.Logger
}

// NewExtractor creates an Extractor that tries the PDF text layer first and
// falls back to rendering and recognizing each page
func NewExtractor(cfg Config, fetcher Fetcher, reader StructuredReader, rasterizer Rasterizer, engine scanning.Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	stages := []Stage{
		StructuredStage(reader, logger),
		RecognitionStage(cfg, rasterizer, engine, logger),
	}
	return NewExtractorWithStages(cfg, fetcher, stages, logger)
}

// NewExtractorWithStages creates an Extractor with a custom stage list
func NewExtractorWithStages(cfg Config, fetcher Fetcher, stages []Stage, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.defaults()
	return &Extractor{cfg: cfg, fetcher: fetcher, stages: stages, logger: logger}
}

// Extract downloads url and returns its text, or nil when the document
// could not be fetched or no stage produced enough text. It never fails
// outward; reasons are logged.
func (e *Extractor) Extract(ctx context.Context, url string) *Result {
	start := time.Now()
	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Error("Failed to fetch document", "url", url, "error", err)
		return nil
	}
	e.logger.Debug("fetched document", "url", url, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())

	res := e.ExtractBytes(ctx, data)
	if res == nil {
		e.logger.Warn("Both text extraction methods failed", "url", url)
	}
	return res
}

// ExtractBytes runs the stages over an already fetched document
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) *Result {
	for _, stage := range e.stages {
		if ctx.Err() != nil {
			e.logger.Warn("Extraction cancelled", "stage", stage.Name, "error", ctx.Err())
			return nil
		}

		text := stage.Extract(ctx, data)
		n := utf8.RuneCountInString(strings.TrimSpace(text))
		if n <= e.cfg.Threshold {
			e.logger.Info("Limited text found, trying next method", "stage", stage.Name, "chars", n)
			continue
		}

		if stage.Clean != nil {
			text = stage.Clean(text)
		}
		e.logger.Info("Extracted meaningful text", "stage", stage.Name, "chars", n)
		return &Result{Text: text, Method: stage.Name}
	}
	return nil
}

// StructuredStage reads the embedded text of every page, joins pages with
// a newline and trims the result. An unreadable document yields "".
func StructuredStage(reader StructuredReader, logger *slog.Logger) Stage {
	return Stage{
		Name: MethodStructured,
		Extract: func(ctx context.Context, data []byte) string {
			pages, err := reader.Pages(data)
			if err != nil {
				logger.Error("Structured extraction failed", "error", err)
				return ""
			}
			logger.Info("Processing PDF", "pages", len(pages))
			return joinPages(pages, "\n", logger)
		},
	}
}

// joinPages concatenates pages that have text, in page order, and logs the
// ones that failed or came back empty
func joinPages(pages []PageText, sep string, logger *slog.Logger) string {
	var b strings.Builder
	for _, p := range pages {
		if p.Err != nil || strings.TrimSpace(p.Text) == "" {
			logger.Warn("Page extracted no text", "page", p.Index+1, "error", p.Err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
