package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSequencer(t *testing.T) *Sequencer {
	t.Helper()
	s := New()
	go func() {
		_ = s.Run(context.Background())
	}()
	t.Cleanup(func() {
		_ = s.ShutdownWithTimeout(5 * time.Second)
	})
	return s
}

func TestSubmitStampsStrictlyIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	s := startSequencer(t)

	var seen []uint64
	for i := 0; i < 10; i++ {
		result, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
			return slot.Seq, nil
		})
		require.NoError(t, err)
		seen = append(seen, result.(uint64))
	}
	for i, seq := range seen {
		assert.Equal(t, uint64(i+1), seq)
	}
}

func TestSubmitReturnsOperationError(t *testing.T) {
	ctx := context.Background()
	s := startSequencer(t)

	opErr := errors.New("rejected")
	result, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
		return nil, opErr
	})
	assert.Nil(t, result)
	require.ErrorIs(t, err, opErr)

	// a rejected operation still consumes its slot
	result, err = s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
		return slot.Seq, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.(uint64))
}

func TestOperationsNeverInterleave(t *testing.T) {
	ctx := context.Background()
	s := startSequencer(t)

	var inFlight, maxInFlight int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "at most one operation may be applied at a time")
}

func TestClockStampsSlotTime(t *testing.T) {
	ctx := context.Background()
	s := New()
	pinned := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return pinned })
	go func() {
		_ = s.Run(context.Background())
	}()
	defer func() {
		_ = s.ShutdownWithTimeout(5 * time.Second)
	}()

	result, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
		return slot.Time, nil
	})
	require.NoError(t, err)
	assert.True(t, result.(time.Time).Equal(pinned))
}

func TestShutdownDrainsBufferedOperations(t *testing.T) {
	ctx := context.Background()
	s := New()

	// submissions buffer while Run is not yet draining
	const buffered = 16
	results := make(chan error, buffered)
	var applied int
	var mu sync.Mutex
	for i := 0; i < buffered; i++ {
		go func() {
			_, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
				mu.Lock()
				applied++
				mu.Unlock()
				return nil, nil
			})
			results <- err
		}()
	}

	// wait for all submissions to be enqueued before starting the loop
	require.Eventually(t, func() bool { return len(s.ops) == buffered }, time.Second, time.Millisecond)

	go func() {
		_ = s.Run(context.Background())
	}()
	require.NoError(t, s.ShutdownWithTimeout(5*time.Second))

	for i := 0; i < buffered; i++ {
		require.NoError(t, <-results)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, buffered, applied, "buffered operations must be applied before shutdown completes")
}

func TestSubmitAfterShutdownRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	go func() {
		_ = s.Run(context.Background())
	}()
	require.NoError(t, s.ShutdownWithTimeout(5*time.Second))

	_, err := s.Submit(ctx, "test.op", func(ctx context.Context, slot Slot) (any, error) {
		return nil, nil
	})
	require.ErrorIs(t, err, errs.Closed)
}
