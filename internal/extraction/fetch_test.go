package extraction

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("HTTPFetcher", func() {
	var (
		server  *ghttp.Server
		fetcher *HTTPFetcher
		url     string
		data    []byte
		err     error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		fetcher = NewHTTPFetcher(nil)
		url = server.URL() + "/orders/2021-AQ-07.pdf"
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = fetcher.Fetch(context.Background(), url)
	})

	When("the document exists", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/orders/2021-AQ-07.pdf"),
				ghttp.RespondWith(http.StatusOK, "%PDF-1.4 body"),
			))
		})

		It("returns the body", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-1.4 body"))
		})
	})

	When("the server answers with an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "<html>missing</html>"))
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("unexpected status 404")))
			Expect(data).To(BeNil())
		})
	})

	When("the body is larger than allowed", func() {
		BeforeEach(func() {
			fetcher.maxBytes = 4
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "0123456789"))
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("exceeds 4 bytes")))
		})
	})

	When("the server is unreachable", func() {
		BeforeEach(func() {
			server.Close()
		})

		It("returns an error", func() {
			Expect(err).To(MatchError(ContainSubstring("fetching document")))
		})
	})
})
