package violation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/penalty-tracker/internal/extraction"
	"github.com/zombor/penalty-tracker/internal/settlement"
)

// blockingExtractor waits for its context to end
type blockingExtractor struct{}

func (blockingExtractor) Extract(ctx context.Context, url string) *extraction.Result {
	<-ctx.Done()
	return nil
}

var _ = Describe("ParseManifest", func() {
	It("decodes documents", func() {
		docs, err := ParseManifest([]byte(`
documents:
  - url: https://example.test/acme.pdf
    defendant: Acme Hog Farm LLC
    year: 2021
    notes: Manure release
  - url: https://example.test/ames.pdf
    defendant: City of Ames
    year: 2019
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(Equal([]Document{
			{URL: "https://example.test/acme.pdf", Defendant: "Acme Hog Farm LLC", Year: 2021, Notes: "Manure release"},
			{URL: "https://example.test/ames.pdf", Defendant: "City of Ames", Year: 2019},
		}))
	})

	It("rejects a document without a url", func() {
		_, err := ParseManifest([]byte("documents:\n  - defendant: Nobody\n"))
		Expect(err).To(MatchError(ContainSubstring("document 1 has no url")))
	})

	It("rejects malformed YAML", func() {
		_, err := ParseManifest([]byte("documents: [\n"))
		Expect(err).To(MatchError(ContainSubstring("parsing manifest")))
	})

	It("loads a manifest from disk", func() {
		path := filepath.Join(GinkgoT().TempDir(), "manifest.yaml")
		Expect(os.WriteFile(path, []byte("documents:\n  - url: https://example.test/a.pdf\n"), 0o600)).To(Succeed())
		docs, err := LoadManifest(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
	})

	It("reports a missing file", func() {
		_, err := LoadManifest(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("reading manifest")))
	})
})

var _ = Describe("WithDeadline", func() {
	It("adds no deadline for a zero timeout", func() {
		ctx, cancel := WithDeadline(context.Background(), 0)
		defer cancel()
		_, ok := ctx.Deadline()
		Expect(ok).To(BeFalse())
		Expect(ctx.Err()).NotTo(HaveOccurred())
	})

	It("bounds the context by a positive timeout", func() {
		ctx, cancel := WithDeadline(context.Background(), time.Minute)
		defer cancel()
		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(deadline).To(BeTemporally("~", time.Now().Add(time.Minute), time.Second))
	})

	It("cancels when asked", func() {
		ctx, cancel := WithDeadline(context.Background(), 0)
		cancel()
		Expect(ctx.Err()).To(MatchError(context.Canceled))
	})
})

var _ = Describe("ProcessBatch", func() {
	var (
		extractor *mockExtractor
		service   *Service
		docs      []Document
		opts      BatchOptions
		result    []*Violation
	)

	BeforeEach(func() {
		extractor = newMockExtractor()
		service = NewServiceWithDeps(newMockDB(), extractor, settlement.NewRecoverer(settlement.DefaultTable(), nil), "",
			&mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

		docs = nil
		for i := 0; i < 7; i++ {
			url := fmt.Sprintf("https://example.test/order-%d.pdf", i)
			docs = append(docs, Document{URL: url, Defendant: fmt.Sprintf("Defendant %d", i), Year: 2020})
			extractor.results[url] = orderResult(fmt.Sprintf("shall pay a penalty of $%d,000", i+1))
		}
		// order-2 yields no text
		delete(extractor.results, docs[2].URL)

		opts = BatchOptions{Concurrency: 3}
	})

	JustBeforeEach(func() {
		result = service.ProcessBatch(context.Background(), docs, opts)
	})

	It("processes the default number of documents", func() {
		Expect(extractor.urls).To(HaveLen(DefaultLimit))
	})

	It("returns violations in document order without failed documents", func() {
		links := make([]string, 0, len(result))
		for _, v := range result {
			links = append(links, v.Link)
		}
		Expect(links).To(Equal([]string{docs[0].URL, docs[1].URL, docs[3].URL, docs[4].URL}))
		Expect(result[2].Settlement.String()).To(Equal("4000"))
	})

	When("the limit is negative", func() {
		BeforeEach(func() {
			opts.Limit = -1
		})

		It("processes every document", func() {
			Expect(extractor.urls).To(HaveLen(7))
			Expect(result).To(HaveLen(6))
		})
	})

	When("a document outlives its deadline", func() {
		BeforeEach(func() {
			service = NewServiceWithDeps(newMockDB(), blockingExtractor{}, settlement.NewRecoverer(settlement.DefaultTable(), nil), "",
				&mockIDGenerator{}, &mockTimeSource{})
			opts = BatchOptions{Limit: 2, Concurrency: 2, Timeout: 20 * time.Millisecond}
		})

		It("gives up on it", func() {
			Expect(result).To(BeEmpty())
		})
	})

	When("no timeout is set", func() {
		BeforeEach(func() {
			opts = BatchOptions{Limit: 2, Concurrency: 2}
		})

		It("still processes every document", func() {
			Expect(result).To(HaveLen(2))
		})
	})
})
