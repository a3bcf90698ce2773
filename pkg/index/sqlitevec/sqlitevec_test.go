package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/index"
	"github.com/owlcave/wklp/pkg/index/sqlitevec"
	"github.com/owlcave/wklp/pkg/logger"
)

func TestSQLiteVec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Suite")
}

var _ = Describe("Driver", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	embeddings := []corpus.Embedding{
		{DocID: "a", Vector: []float32{1, 0, 0, 0}},
		{DocID: "b", Vector: []float32{0, 1, 0, 0}},
		{DocID: "c", Vector: []float32{0.9, 0.1, 0, 0}},
	}

	Describe("New", func() {
		It("should error when given no embeddings", func() {
			_, err := sqlitevec.New(nil, logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("should error on mismatched dimensions", func() {
			_, err := sqlitevec.New([]corpus.Embedding{
				{DocID: "a", Vector: []float32{1, 0}},
				{DocID: "b", Vector: []float32{1}},
			}, logger.Nop())
			Expect(err).To(MatchError(index.ErrDimension))
		})

		It("should build an index over the embeddings", func() {
			driver, err := sqlitevec.New(embeddings, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Size()).To(Equal(3))
			Expect(driver.Close()).To(Succeed())
		})
	})

	Describe("Search", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.New(embeddings, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("returns the nearest documents first", func() {
			results, err := driver.Search(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].DocID).To(Equal("a"))
			Expect(results[1].DocID).To(Equal("c"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("caps the result count at the corpus size", func() {
			results, err := driver.Search(ctx, []float32{0, 1, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
		})

		It("rejects a query with the wrong dimension", func() {
			_, err := driver.Search(ctx, []float32{1, 0}, 2)
			Expect(err).To(MatchError(index.ErrDimension))
		})
	})
})
