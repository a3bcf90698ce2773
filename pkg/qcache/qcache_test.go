package qcache_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/owlcave/wklp/pkg/logger"
	"github.com/owlcave/wklp/pkg/qcache"
)

func TestQCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "QCache Suite")
}

var _ = Describe("Key", func() {
	It("is stable under whitespace and case differences", func() {
		a := qcache.Key("Where is   Twin Peaks?", 7, 5)
		b := qcache.Key("  where is twin peaks?  ", 7, 5)
		Expect(a).To(Equal(b))
	})

	It("varies with the top_k parameters", func() {
		a := qcache.Key("where is twin peaks?", 7, 5)
		b := qcache.Key("where is twin peaks?", 10, 5)
		c := qcache.Key("where is twin peaks?", 7, 3)
		Expect(a).NotTo(Equal(b))
		Expect(a).NotTo(Equal(c))
	})
})

var _ = Describe("Cache", func() {
	var (
		tmpDir string
		path   string
		cache  *qcache.Cache
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "qcache-test-*")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(tmpDir, "queries.db")

		cache, err = qcache.Open(path, 100, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		cache.Close()
		os.RemoveAll(tmpDir)
	})

	It("computes once for sequential identical requests", func() {
		var calls atomic.Int32
		compute := func(context.Context) ([]byte, error) {
			calls.Add(1)
			return []byte("result"), nil
		}

		first, err := cache.GetOrCompute(ctx, "k", compute)
		Expect(err).NotTo(HaveOccurred())
		second, err := cache.GetOrCompute(ctx, "k", compute)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal([]byte("result")))
		Expect(second).To(Equal(first))
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("computes once for concurrent identical requests", func() {
		var calls atomic.Int32
		release := make(chan struct{})
		compute := func(context.Context) ([]byte, error) {
			calls.Add(1)
			<-release
			return []byte("result"), nil
		}

		const n = 16
		var wg sync.WaitGroup
		results := make([][]byte, n)
		errs := make([]error, n)

		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = cache.GetOrCompute(ctx, "shared", compute)
			}()
		}

		// Let the goroutines pile up on the single flight, then release it.
		Eventually(calls.Load).Should(Equal(int32(1)))
		close(release)
		wg.Wait()

		for i := range n {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(results[i]).To(Equal([]byte("result")))
		}
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("computes independently for different keys", func() {
		var calls atomic.Int32
		compute := func(context.Context) ([]byte, error) {
			return []byte(fmt.Sprintf("r%d", calls.Add(1))), nil
		}

		_, err := cache.GetOrCompute(ctx, "a", compute)
		Expect(err).NotTo(HaveOccurred())
		_, err = cache.GetOrCompute(ctx, "b", compute)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("does not cache failed computations", func() {
		var calls atomic.Int32
		failing := func(context.Context) ([]byte, error) {
			calls.Add(1)
			return nil, fmt.Errorf("backend down")
		}

		_, err := cache.GetOrCompute(ctx, "k", failing)
		Expect(err).To(HaveOccurred())

		value, err := cache.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
			calls.Add(1)
			return []byte("recovered"), nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal([]byte("recovered")))
		Expect(calls.Load()).To(Equal(int32(2)))
	})

	It("survives a restart", func() {
		_, err := cache.GetOrCompute(ctx, "persisted", func(context.Context) ([]byte, error) {
			return []byte("value"), nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.Close()).To(Succeed())

		reopened, err := qcache.Open(path, 100, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		value, err := reopened.GetOrCompute(ctx, "persisted", func(context.Context) ([]byte, error) {
			Fail("compute should not run on a warm cache")
			return nil, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal([]byte("value")))
	})

	It("evicts the least recently used entry at the size bound", func() {
		small, err := qcache.Open(filepath.Join(tmpDir, "small.db"), 2, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer small.Close()

		store := func(key string) {
			_, err := small.GetOrCompute(ctx, key, func(context.Context) ([]byte, error) {
				return []byte(key), nil
			})
			Expect(err).NotTo(HaveOccurred())
		}

		store("a")
		store("b")
		// Touch "a" so "b" becomes the oldest unused entry.
		store("a")
		store("c")

		n, err := small.Len(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		var recomputed bool
		_, err = small.GetOrCompute(ctx, "b", func(context.Context) ([]byte, error) {
			recomputed = true
			return []byte("b"), nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(recomputed).To(BeTrue(), "evicted entry should be recomputed")
	})

	It("finishes the computation even when the caller has gone away", func() {
		canceled, cancel := context.WithCancel(context.Background())
		cancel()

		value, err := cache.GetOrCompute(canceled, "detached", func(ctx context.Context) ([]byte, error) {
			// The compute context must outlive the abandoned caller.
			Expect(ctx.Err()).To(BeNil())
			return []byte("done"), nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal([]byte("done")))

		n, err := cache.Len(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})
})
