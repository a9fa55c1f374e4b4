package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_VisitsEveryIndexOnce(t *testing.T) {
	const n = 100
	var mu sync.Mutex
	seen := make(map[int]int)

	err := Run(context.Background(), n, 6, func(ctx context.Context, i int) error {
		mu.Lock()
		seen[i]++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, seen[i], "index %d", i)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var cur, peak atomic.Int32
	err := Run(context.Background(), 40, 6, func(ctx context.Context, i int) error {
		c := cur.Add(1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		cur.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(6))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestRun_FirstErrorStops(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32
	err := Run(context.Background(), 1000, 2, func(ctx context.Context, i int) error {
		calls.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int32(1000))
}

func TestRun_Empty(t *testing.T) {
	called := false
	err := Run(context.Background(), 0, 4, func(ctx context.Context, i int) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestMap_PreservesOrder(t *testing.T) {
	in := []int{5, 3, 9, 1, 7}
	out, err := Map(context.Background(), in, 3, func(ctx context.Context, v int) (int, error) {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 90, 10, 70}, out)
}
