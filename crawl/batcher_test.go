package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
	"github.com/fwojciec/furnitron/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects classified candidates for inspection.
type recorder struct {
	mu      sync.Mutex
	records []furnitron.ClassifiedCandidate
	err     error
}

func (r *recorder) Record(cc furnitron.ClassifiedCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, cc)
	return r.err
}

func (r *recorder) all() []furnitron.ClassifiedCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]furnitron.ClassifiedCandidate(nil), r.records...)
}

func candidate(i int) furnitron.Candidate {
	return furnitron.Candidate{
		Text:      fmt.Sprintf("Oak Chair %d", i),
		SourceURL: "https://shop.example.com/a",
		Order:     i,
	}
}

// acceptAll labels every text a product name.
func acceptAll(_ context.Context, texts []string) ([]furnitron.Label, error) {
	labels := make([]furnitron.Label, len(texts))
	for i := range labels {
		labels[i] = furnitron.LabelProductName
	}
	return labels, nil
}

func TestBatcher(t *testing.T) {
	t.Parallel()

	t.Run("sends full batches and flushes the remainder on close", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var sizes []int
		classifier := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				mu.Lock()
				sizes = append(sizes, len(texts))
				mu.Unlock()
				return acceptAll(ctx, texts)
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec, crawl.WithBatchSize(3))

		for i := 1; i <= 7; i++ {
			require.NoError(t, b.Submit(candidate(i)))
		}
		require.NoError(t, b.Close())

		assert.Equal(t, []int{3, 3, 1}, sizes)
		records := rec.all()
		require.Len(t, records, 7)
		for i, cc := range records {
			assert.Equal(t, i+1, cc.Order)
			assert.Equal(t, furnitron.LabelProductName, cc.Label)
			assert.False(t, cc.Degraded)
		}
		batches, degraded := b.Stats()
		assert.Equal(t, 3, batches)
		assert.Zero(t, degraded)
	})

	t.Run("flush sends a partial batch", func(t *testing.T) {
		t.Parallel()

		called := make(chan int, 1)
		classifier := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				called <- len(texts)
				return acceptAll(ctx, texts)
			},
		}
		b := crawl.NewBatcher(context.Background(), classifier, &recorder{}, crawl.WithBatchSize(10))

		require.NoError(t, b.Submit(candidate(1)))
		b.Flush()

		select {
		case n := <-called:
			assert.Equal(t, 1, n)
		case <-time.After(time.Second):
			t.Fatal("partial batch was not classified after flush")
		}
		require.NoError(t, b.Close())
	})

	t.Run("calls the classifier one batch at a time", func(t *testing.T) {
		t.Parallel()

		var inFlight, maxInFlight atomic.Int32
		classifier := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				n := inFlight.Add(1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				return acceptAll(ctx, texts)
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec, crawl.WithBatchSize(2))

		var wg sync.WaitGroup
		for w := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 5 {
					assert.NoError(t, b.Submit(candidate(w*5+i)))
				}
			}()
		}
		wg.Wait()
		require.NoError(t, b.Close())

		assert.Equal(t, int32(1), maxInFlight.Load())
		assert.Len(t, rec.all(), 40)
	})

	t.Run("degrades a batch after exhausting retries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		classifier := &mock.Classifier{
			ClassifyFn: func(context.Context, []string) ([]furnitron.Label, error) {
				calls.Add(1)
				return nil, furnitron.Errorf(furnitron.EUNAVAILABLE, "model server down")
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec,
			crawl.WithBatchSize(2),
			crawl.WithClassifyDelays([]time.Duration{0, 0}),
		)

		require.NoError(t, b.Submit(candidate(1)))
		require.NoError(t, b.Submit(candidate(2)))
		require.NoError(t, b.Close())

		assert.Equal(t, int32(3), calls.Load())
		for _, cc := range rec.all() {
			assert.True(t, cc.Degraded)
			assert.Equal(t, furnitron.LabelOther, cc.Label)
		}
		_, degraded := b.Stats()
		assert.Equal(t, 2, degraded)
	})

	t.Run("does not retry a permanent failure", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		classifier := &mock.Classifier{
			ClassifyFn: func(context.Context, []string) ([]furnitron.Label, error) {
				calls.Add(1)
				return nil, furnitron.Errorf(furnitron.EINVALID, "bad request")
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec,
			crawl.WithClassifyDelays([]time.Duration{0, 0}),
		)

		require.NoError(t, b.Submit(candidate(1)))
		require.NoError(t, b.Close())

		assert.Equal(t, int32(1), calls.Load())
		require.Len(t, rec.all(), 1)
		assert.True(t, rec.all()[0].Degraded)
	})

	t.Run("degrades when label count does not match", func(t *testing.T) {
		t.Parallel()

		classifier := &mock.Classifier{
			ClassifyFn: func(context.Context, []string) ([]furnitron.Label, error) {
				return []furnitron.Label{furnitron.LabelProductName}, nil
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec, crawl.WithBatchSize(2))

		require.NoError(t, b.Submit(candidate(1)))
		require.NoError(t, b.Submit(candidate(2)))
		require.NoError(t, b.Close())

		records := rec.all()
		require.Len(t, records, 2)
		for _, cc := range records {
			assert.True(t, cc.Degraded)
		}
	})

	t.Run("times out a slow classifier call", func(t *testing.T) {
		t.Parallel()

		classifier := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, _ []string) ([]furnitron.Label, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(context.Background(), classifier, rec,
			crawl.WithClassifyTimeout(10*time.Millisecond),
		)

		require.NoError(t, b.Submit(candidate(1)))
		require.NoError(t, b.Close())

		require.Len(t, rec.all(), 1)
		assert.True(t, rec.all()[0].Degraded)
	})

	t.Run("classifies batches after the run context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		classifier := &mock.Classifier{
			ClassifyFn: func(ctx context.Context, texts []string) ([]furnitron.Label, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return acceptAll(ctx, texts)
			},
		}
		rec := &recorder{}
		b := crawl.NewBatcher(ctx, classifier, rec)

		require.NoError(t, b.Submit(candidate(1)))
		require.NoError(t, b.Close())

		require.Len(t, rec.all(), 1)
		assert.False(t, rec.all()[0].Degraded)
		assert.Equal(t, furnitron.LabelProductName, rec.all()[0].Label)
	})

	t.Run("rejects submit after close", func(t *testing.T) {
		t.Parallel()

		b := crawl.NewBatcher(context.Background(), &mock.Classifier{ClassifyFn: acceptAll}, &recorder{})
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())

		err := b.Submit(candidate(1))

		assert.Equal(t, furnitron.EINVARIANT, furnitron.ErrorCode(err))
	})

	t.Run("close returns the first recorder error", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{err: errors.New("record failed")}
		b := crawl.NewBatcher(context.Background(), &mock.Classifier{ClassifyFn: acceptAll}, rec)

		require.NoError(t, b.Submit(candidate(1)))
		err := b.Close()

		assert.EqualError(t, err, "record failed")
	})
}
