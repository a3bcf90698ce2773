package reader_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/owlcave/wklp/pkg/reader"
)

func TestReader(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reader Suite")
}

func cand(text string, score float64, docRank int) reader.Candidate {
	return reader.Candidate{
		Answer:  reader.Answer{Text: text, Score: score, DocumentID: "doc"},
		DocRank: docRank,
	}
}

var _ = Describe("Rank", func() {
	It("orders by descending score", func() {
		answers := reader.Rank([]reader.Candidate{
			cand("low", 0.3, 0),
			cand("high", 0.9, 1),
			cand("mid", 0.5, 2),
		}, 10, 0)

		Expect(answers).To(HaveLen(3))
		Expect(answers[0].Text).To(Equal("high"))
		Expect(answers[1].Text).To(Equal("mid"))
		Expect(answers[2].Text).To(Equal("low"))
	})

	It("breaks ties by the lower retrieval rank", func() {
		answers := reader.Rank([]reader.Candidate{
			cand("second-doc", 0.7, 1),
			cand("first-doc", 0.7, 0),
		}, 10, 0)

		Expect(answers[0].Text).To(Equal("first-doc"))
		Expect(answers[1].Text).To(Equal("second-doc"))
	})

	It("drops answers below the threshold entirely", func() {
		answers := reader.Rank([]reader.Candidate{
			cand("confident", 0.8, 0),
			cand("weak", 0.1, 1),
		}, 10, 0.15)

		Expect(answers).To(HaveLen(1))
		Expect(answers[0].Text).To(Equal("confident"))
	})

	It("returns an empty non-nil slice when nothing clears the threshold", func() {
		answers := reader.Rank([]reader.Candidate{
			cand("weak", 0.05, 0),
		}, 10, 0.5)

		Expect(answers).NotTo(BeNil())
		Expect(answers).To(BeEmpty())
	})

	It("truncates to topK after filtering", func() {
		answers := reader.Rank([]reader.Candidate{
			cand("a", 0.9, 0),
			cand("b", 0.8, 1),
			cand("c", 0.7, 2),
		}, 2, 0)

		Expect(answers).To(HaveLen(2))
		Expect(answers[0].Text).To(Equal("a"))
		Expect(answers[1].Text).To(Equal("b"))
	})
})

var _ = Describe("BuildContext", func() {
	text := "Twin Peaks is a town in Washington State."

	It("locates the span and keeps the offsets invariant", func() {
		window, offsets, ok := reader.BuildContext(text, "Washington State", 24)
		Expect(ok).To(BeTrue())
		Expect(window[offsets.Start:offsets.End]).To(Equal("Washington State"))
	})

	It("repairs a drifted start offset", func() {
		window, offsets, ok := reader.BuildContext(text, "Washington State", 3)
		Expect(ok).To(BeTrue())
		Expect(window[offsets.Start:offsets.End]).To(Equal("Washington State"))
	})

	It("fails when the answer is not in the text", func() {
		_, _, ok := reader.BuildContext(text, "Oregon", 0)
		Expect(ok).To(BeFalse())
	})

	It("windows long documents around the span", func() {
		long := ""
		for range 50 {
			long += "padding text before the answer appears here. "
		}
		long += "The owls are not what they seem."

		window, offsets, ok := reader.BuildContext(long, "not what they seem", 0)
		Expect(ok).To(BeTrue())
		Expect(len(window)).To(BeNumerically("<", len(long)))
		Expect(window[offsets.Start:offsets.End]).To(Equal("not what they seem"))
	})
})
