package ctxval_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nguyentranbao-ct/livechat/pkg/ctxval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	t.Parallel()
	type testKey string

	t.Run("set and get", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		require.True(t, ctxval.Set(ctx, testKey("k"), "v"))
		got, ok := ctxval.Get[testKey, string](ctx, testKey("k"))
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("overwrite", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		ctxval.Set(ctx, testKey("k"), "v1")
		ctxval.Set(ctx, testKey("k"), "v2")
		got, _ := ctxval.Get[testKey, string](ctx, testKey("k"))
		assert.Equal(t, "v2", got)
	})

	t.Run("missing key", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		_, ok := ctxval.Get[testKey, string](ctx, testKey("k"))
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		ctxval.Set(ctx, testKey("k"), 42)
		_, ok := ctxval.Get[testKey, string](ctx, testKey("k"))
		assert.False(t, ok)
	})

	t.Run("unwrapped context", func(t *testing.T) {
		ctx := context.Background()
		assert.False(t, ctxval.Set(ctx, testKey("k"), "v"))
		_, ok := ctxval.Get[testKey, string](ctx, testKey("k"))
		assert.False(t, ok)
	})

	t.Run("visible through derived contexts", func(t *testing.T) {
		parent := ctxval.Wrap(context.Background())
		child, cancel := context.WithCancel(parent)
		defer cancel()
		ctxval.Set(child, testKey("k"), "from-child")
		got, ok := ctxval.Get[testKey, string](parent, testKey("k"))
		assert.True(t, ok)
		assert.Equal(t, "from-child", got)
	})

	t.Run("wrap twice keeps bag", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		ctxval.Set(ctx, testKey("k"), "v")
		again := ctxval.Wrap(ctx)
		got, _ := ctxval.Get[testKey, string](again, testKey("k"))
		assert.Equal(t, "v", got)
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := ctxval.Wrap(context.Background())
	appendFn := func(cur []any) []any { return append(cur, "x") }

	require.True(t, ctxval.Update(ctx, "fields", appendFn))
	require.True(t, ctxval.Update(ctx, "fields", appendFn))

	got, ok := ctxval.Get[string, []any](ctx, "fields")
	assert.True(t, ok)
	assert.Equal(t, []any{"x", "x"}, got)
	assert.False(t, ctxval.Update(context.Background(), "fields", appendFn))
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := ctxval.Wrap(context.Background())
	const workers = 50
	const ops = 500

	var wg sync.WaitGroup
	wg.Add(workers * 2)
	for i := range workers {
		go func(id int) {
			defer wg.Done()
			for j := range ops {
				ctxval.Set(ctx, fmt.Sprintf("key-%d", j%20), id)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := range ops {
				_, _ = ctxval.Get[string, int](ctx, fmt.Sprintf("key-%d", j%20))
			}
		}()
	}
	wg.Wait()

	counter := ctxval.Wrap(context.Background())
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			ctxval.Update(counter, "n", func(cur int) int { return cur + 1 })
		}()
	}
	wg.Wait()
	n, _ := ctxval.Get[string, int](counter, "n")
	assert.Equal(t, workers, n)
}
