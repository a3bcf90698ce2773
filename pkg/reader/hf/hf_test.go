package hf_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/logger"
	"github.com/owlcave/wklp/pkg/reader"
	"github.com/owlcave/wklp/pkg/reader/hf"
)

func TestHF(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HF Reader Suite")
}

var _ = Describe("Reader", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	doc := corpus.Document{
		ID:   "tp-1",
		Text: "Twin Peaks is a town in Washington State.",
	}

	It("extracts a span and maps it into a context window", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/models/deepset/roberta-base-squad2"))

			var req struct {
				Inputs struct {
					Question string `json:"question"`
					Context  string `json:"context"`
				} `json:"inputs"`
			}
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			Expect(req.Inputs.Question).To(Equal("Where is Twin Peaks?"))

			start := strings.Index(req.Inputs.Context, "Washington State")
			json.NewEncoder(w).Encode(map[string]any{
				"answer": "Washington State",
				"score":  0.93,
				"start":  start,
				"end":    start + len("Washington State"),
			})
		}))

		r, err := hf.NewReader(hf.Config{BaseURL: server.URL, Threshold: 0.15}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		answers, err := r.Extract(ctx, "Where is Twin Peaks?", []corpus.Document{doc}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(answers).To(HaveLen(1))
		Expect(answers[0].Text).To(Equal("Washington State"))
		Expect(answers[0].Score).To(Equal(0.93))
		Expect(answers[0].DocumentID).To(Equal("tp-1"))
		Expect(answers[0].Context[answers[0].Offsets.Start:answers[0].Offsets.End]).To(Equal("Washington State"))
	})

	It("treats an empty answer as no span", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"answer": "", "score": 0.99, "start": 0, "end": 0})
		}))

		r, err := hf.NewReader(hf.Config{BaseURL: server.URL}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		answers, err := r.Extract(ctx, "Who killed Laura Palmer?", []corpus.Document{doc}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(answers).To(BeEmpty())
	})

	It("drops spans below the threshold", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"answer": "a town", "score": 0.05, "start": 16, "end": 22})
		}))

		r, err := hf.NewReader(hf.Config{BaseURL: server.URL, Threshold: 0.15}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		answers, err := r.Extract(ctx, "What is Twin Peaks?", []corpus.Document{doc}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(answers).To(BeEmpty())
	})

	It("wraps backend failures in ErrExtraction", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))

		r, err := hf.NewReader(hf.Config{BaseURL: server.URL}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Extract(ctx, "Where is Twin Peaks?", []corpus.Document{doc}, 5)
		Expect(err).To(MatchError(reader.ErrExtraction))
	})
})
