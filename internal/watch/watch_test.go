package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/vbapy/internal/converter"
)

func startWatcher(t *testing.T, root string) <-chan []string {
	t.Helper()
	w, err := New(root, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, files []string) {
			batches <- files
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return batches
}

func nextBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcher_ReportsSpreadsheetChanges(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	batches := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "~$book.xlsm"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.xlsm"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.xlsm"), []byte("xy"), 0o644))

	assert.Equal(t, []string{filepath.Join(root, "book.xlsm")}, nextBatch(t, batches))
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	batches := startWatcher(t, root)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the event loop a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.xls"), []byte("x"), 0o644))

	assert.Equal(t, []string{filepath.Join(sub, "a.xls")}, nextBatch(t, batches))
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	w := &Watcher{}
	WithExtensions([]string{".xlsm", ".XLSX"})(w)

	tests := []struct {
		path string
		want bool
	}{
		{"/d/a.xlsm", true},
		{"/d/a.xlsx", true},
		{"/d/a.XLSM", true},
		{"/d/a.xls", false},
		{"/d/~$a.xlsm", false},
		{"/d/.a.xlsm", false},
		{"/d/a_converted.py", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.path))
		})
	}
}

type recordingConverter struct {
	mu    sync.Mutex
	calls map[string]string
}

func (r *recordingConverter) ConvertFile(_ context.Context, path, outputPath string) converter.FileResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]string{}
	}
	r.calls[path] = outputPath
	return converter.FileResult{Success: true, InputFile: path, OutputFile: outputPath}
}

func TestConvertChanged(t *testing.T) {
	conv := &recordingConverter{}
	root := filepath.Join("/", "data", "books")
	out := filepath.Join("/", "data", "out")

	a := filepath.Join(root, "a.xlsm")
	b := filepath.Join(root, "q1", "b.xlsx")
	c := filepath.Join("/", "elsewhere", "c.xls")

	ConvertChanged(conv, root, out, nil)(context.Background(), []string{a, b, c})

	assert.Equal(t, map[string]string{
		a: filepath.Join(out, "a_converted.py"),
		b: filepath.Join(out, "q1", "b_converted.py"),
		c: filepath.Join(out, "c_converted.py"),
	}, conv.calls)
}
