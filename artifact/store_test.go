package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "result", "test")
	s := NewLocalStore(root)

	require.NoError(t, s.Put(ctx, "LR_0.5_Radius_1_Epochs_2.png", []byte("first")))
	require.NoError(t, s.Put(ctx, "LR_0.5_Radius_1_Epochs_2.png", []byte("second")))

	data, err := os.ReadFile(filepath.Join(root, "LR_0.5_Radius_1_Epochs_2.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	data, err = Get(ctx, s, "LR_0.5_Radius_1_Epochs_2.png")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	_, err = s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, filepath.Join(root, "a", "b.png"), s.Location("a/b.png"))
}

func TestLocalStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLocalStore(t.TempDir()).Put(ctx, "x", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "b", buf))
	require.NoError(t, s.Put(ctx, "a", nil))
	buf[0] = 'x'

	data, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
	assert.Equal(t, []string{"a", "b"}, s.Names())

	_, err = s.Get(ctx, "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

type writeOnly struct{}

func (writeOnly) Put(context.Context, string, []byte) error { return nil }
func (writeOnly) Location(name string) string             { return name }

func TestGetUnsupported(t *testing.T) {
	_, err := Get(context.Background(), writeOnly{}, "x")
	assert.Error(t, err)
}

func TestRateLimited(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()

	assert.Same(t, Store(mem), NewRateLimited(mem, 0))

	s := NewRateLimited(mem, 1000)
	start := time.Now()
	// The bucket starts full, so the first 1000 bytes pass immediately and
	// the remaining 500 wait for about half a second.
	require.NoError(t, s.Put(ctx, "x", make([]byte, 1500)))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)

	data, err := Get(ctx, s, "x")
	require.NoError(t, err)
	assert.Len(t, data, 1500)
	assert.Equal(t, "mem://x", s.Location("x"))

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, s.Put(ctx, "y", make([]byte, 5000)))
}
