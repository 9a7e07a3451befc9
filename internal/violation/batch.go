package violation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// DefaultLimit is how many documents a batch processes when no limit is given
const DefaultLimit = 5

// Manifest lists the documents a batch run should process
type Manifest struct {
	Documents []Document `yaml:"documents"`
}

// LoadManifest reads a YAML manifest from path
func LoadManifest(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a YAML manifest. Every document needs a URL.
func ParseManifest(data []byte) ([]Document, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	for i, d := range m.Documents {
		if strings.TrimSpace(d.URL) == "" {
			return nil, fmt.Errorf("parsing manifest: document %d has no url", i+1)
		}
	}
	return m.Documents, nil
}

// BatchOptions bounds a batch run
type BatchOptions struct {
	Limit       int           // documents processed; 0 means DefaultLimit, negative means all
	Concurrency int           // documents in flight at once
	Timeout     time.Duration // per-document deadline; 0 means none
}

// WithDeadline bounds ctx by timeout. A timeout of zero or less adds no
// deadline.
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// ProcessBatch processes up to opts.Limit documents concurrently and
// returns the violations built, in document order. Documents that fail are
// logged and left out.
func (s *Service) ProcessBatch(ctx context.Context, docs []Document, opts BatchOptions) []*Violation {
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	slog.Info("Starting batch", "documents", len(docs), "concurrency", opts.Concurrency)

	results := make([]*Violation, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			dctx, cancel := WithDeadline(gctx, opts.Timeout)
			defer cancel()

			v, err := s.ProcessDocument(dctx, doc)
			if err != nil {
				if !errors.Is(err, ErrNoText) {
					slog.Error("Error processing document", "defendant", doc.Defendant, "url", doc.URL, "error", err)
				}
				return nil
			}
			results[i] = v
			return nil
		})
	}
	// document failures are logged, never returned
	_ = g.Wait()

	violations := make([]*Violation, 0, len(results))
	for _, v := range results {
		if v != nil {
			violations = append(violations, v)
		}
	}
	return violations
}
