package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PDFReader", func() {
	var (
		data  []byte
		pages []PageText
		err   error
	)

	JustBeforeEach(func() {
		pages, err = PDFReader{}.Pages(data)
	})

	When("the PDF has a text layer", func() {
		BeforeEach(func() {
			data = buildPDF(
				"ADMINISTRATIVE CONSENT ORDER\nRespondent shall pay an administrative penalty of $1,234.56",
				"Signed by the Director",
			)
		})

		It("returns the text of each page in order", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(pages).To(HaveLen(2))
			Expect(pages[0].Index).To(Equal(0))
			Expect(pages[0].Err).NotTo(HaveOccurred())
			Expect(pages[0].Text).To(ContainSubstring("administrative penalty of $1,234.56"))
			Expect(pages[1].Index).To(Equal(1))
			Expect(pages[1].Text).To(ContainSubstring("Signed by the Director"))
		})
	})

	When("the bytes are not a PDF", func() {
		BeforeEach(func() {
			data = []byte("garbage bytes that are not a document")
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
			Expect(pages).To(BeEmpty())
		})
	})

	When("the PDF is truncated", func() {
		BeforeEach(func() {
			full := buildPDF("Some order text")
			data = full[:len(full)/2]
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
