package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func TestWatcherDebouncesPerFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(a, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("{}"), 0o644))

	var (
		mu   sync.Mutex
		hits = map[string]int{}
	)
	got := make(chan string, 8)
	w := &Watcher{
		Paths:    []string{a, b},
		Debounce: 50 * time.Millisecond,
		Log:      logx.Nop(),
		OnChange: func(_ context.Context, p string) {
			mu.Lock()
			hits[p]++
			mu.Unlock()
			got <- p
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(a, []byte(`{"n":1}`), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	select {
	case p := <-got:
		require.Equal(t, a, p)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, hits[a])
	require.Zero(t, hits[b])
}
