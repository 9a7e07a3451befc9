package extraction

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zombor/penalty-tracker/internal/scanning"
)

// RecognitionStage renders every page, enhances it and runs the engine on
// it. Pages are recognized concurrently up to cfg.Workers but joined in page
// order with a blank line. A failed or empty page is skipped. Accepted text
// goes through CleanRecognizedText.
func RecognitionStage(cfg Config, rasterizer Rasterizer, engine scanning.Engine, logger *slog.Logger) Stage {
	cfg.defaults()
	r := &recognizer{cfg: cfg, rasterizer: rasterizer, engine: engine, logger: logger}
	return Stage{
		Name:    MethodRecognition,
		Extract: r.extract,
		Clean:   CleanRecognizedText,
	}
}

type recognizer struct {
	cfg        Config
	rasterizer Rasterizer
	engine     scanning.Engine
	logger     *slog.Logger
}

func (r *recognizer) extract(ctx context.Context, data []byte) string {
	doc, err := r.rasterizer.Open(data)
	if err != nil {
		r.logger.Error("OCR processing failed", "error", err)
		return ""
	}
	defer func() {
		if err := doc.Close(); err != nil {
			r.logger.Warn("Failed to close rendered document", "error", err)
		}
	}()

	pages := r.recognizePages(ctx, doc)
	text := joinPages(pages, "\n\n", r.logger)
	if text != "" {
		r.logger.Info("OCR extracted text", "chars", len(text), "pages", countText(pages))
	}
	return text
}

// recognizePages renders pages one at a time on the calling goroutine,
// since documents are not safe for concurrent rendering, and hands each
// bitmap to a bounded pool of recognizers. Each result lands in its own
// slot so order is independent of completion order.
func (r *recognizer) recognizePages(ctx context.Context, doc RasterDocument) []PageText {
	n := doc.NumPage()
	pages := make([]PageText, n)

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			pages[i] = PageText{Index: i, Err: err}
			continue
		}

		img, err := doc.Render(i, r.cfg.DPI)
		if err != nil {
			pages[i] = PageText{Index: i, Err: err}
			continue
		}

		g.Go(func() error {
			pages[i] = r.recognizePage(ctx, i, img)
			return nil
		})
	}

	// page failures are recorded in pages, never returned
	_ = g.Wait()
	return pages
}

func (r *recognizer) recognizePage(ctx context.Context, index int, img image.Image) (page PageText) {
	page.Index = index
	defer func() {
		if rec := recover(); rec != nil {
			page.Text = ""
			page.Err = fmt.Errorf("recognizing page: %v", rec)
		}
	}()

	enhanced := scanning.Enhance(img, r.cfg.EnhanceFactor)
	text, err := r.engine.Recognize(ctx, enhanced, r.cfg.Recognition)
	if err != nil {
		page.Err = err
		return page
	}
	if strings.TrimSpace(text) == "" {
		page.Err = errEmptyPage
		return page
	}

	r.logger.Info("Successfully extracted text from page", "page", index+1)
	page.Text = text
	return page
}

func countText(pages []PageText) int {
	n := 0
	for _, p := range pages {
		if p.Err == nil && strings.TrimSpace(p.Text) != "" {
			n++
		}
	}
	return n
}
