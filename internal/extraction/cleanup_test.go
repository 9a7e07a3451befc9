package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CleanRecognizedText", func() {
	DescribeTable("repairs lone glyphs",
		func(in, out string) {
			Expect(CleanRecognizedText(in)).To(Equal(out))
		},
		Entry("lone zero", "0ak Street", "Oak Street"),
		Entry("lone one", "Count 1 of the petition", "Count I of the petition"),
		Entry("lone eight", "Exhibit 8", "Exhibit B"),
		Entry("lone five", "Section 5", "Section S"),
		Entry("dollar before a letter", "$ewage lagoon", "Sewage lagoon"),
		Entry("dollar before a space", "a $ 500 fee", "a S 500 fee"),
		Entry("digit runs", "paid $10,850.00 in 2019", "paid $10,850.00 in 2019"),
		Entry("doubled dollar", "$$100", "S$100"),
		Entry("thousands separator", "a penalty of $1,500", "a penalty of $1,500"),
		Entry("decimal fraction", "interest of $0.75 per day", "interest of $0.75 per day"),
		Entry("prose punctuation", "Count 1, paragraph 8.", "Count I, paragraph B."),
		Entry("single-digit amount", "a penalty of $5", "a penalty of $S"),
		Entry("empty", "", ""),
	)

	It("is idempotent", func() {
		samples := []string{
			"0n 1 May the $ite at 8 Main paid $1,500 under Section 5.",
			"Total: $ 0 1 5 8 and 15 80 $9, $1,000.50",
			filler(2),
		}
		for _, s := range samples {
			once := CleanRecognizedText(s)
			Expect(CleanRecognizedText(once)).To(Equal(once), s)
		}
	})

	It("leaves text without digits or dollar signs alone", func() {
		Expect(CleanRecognizedText(filler(3))).To(Equal(filler(3)))
	})
})
