package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/vbapy/converr"
	"martianoff/vbapy/internal/converter"
)

// fakeConverter fails every file whose name contains "bad".
type fakeConverter struct {
	mu      sync.Mutex
	outputs map[string]string
	active  atomic.Int32
	peak    atomic.Int32
}

func (f *fakeConverter) ConvertFile(ctx context.Context, path, outputPath string) converter.FileResult {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	if f.outputs == nil {
		f.outputs = map[string]string{}
	}
	f.outputs[path] = outputPath
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return converter.FileResult{InputFile: path, Error: err.Error()}
	}
	if strings.Contains(filepath.Base(path), "bad") {
		return converter.FileResult{
			InputFile: path,
			Error:     "No VBA code found in file",
			ErrorType: converr.TypeConversion,
		}
	}
	return converter.FileResult{
		Success:    true,
		InputFile:  path,
		OutputFile: outputPath,
		ComplexityAnalysis: &converter.ComplexityReport{
			ComplexityScore: 3,
			TotalLines:      12,
			RoutineCount:    2,
			Difficulty:      converter.Easy,
		},
	}
}

func TestConvertDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.xlsm", "bad.xlsx", "c.xls", "sub/d.xlsm", "readme.md")

	conv := &fakeConverter{}
	summary, err := NewRunner(conv, WithWorkers(2)).ConvertDirectory(context.Background(), root, "")
	require.NoError(t, err)

	outDir := filepath.Join(root, DefaultOutputDir)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 3, summary.Converted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"bad.xlsx"}, summary.FailedFiles)
	assert.Equal(t, outDir, summary.OutputDir)
	assert.Equal(t, "Processed 4 files\nSuccessfully converted: 3\nFailed: 1\nFailed files: bad.xlsx", summary.Text)

	var files []string
	for _, r := range summary.Results {
		files = append(files, r.File)
	}
	assert.Equal(t, []string{"a.xlsm", "bad.xlsx", "c.xls", filepath.Join("sub", "d.xlsm")}, files)

	assert.Equal(t, filepath.Join(outDir, "a_converted.py"), conv.outputs[filepath.Join(root, "a.xlsm")])
	assert.Equal(t, filepath.Join(outDir, "sub", "d_converted.py"), conv.outputs[filepath.Join(root, "sub", "d.xlsm")])
	assert.LessOrEqual(t, conv.peak.Load(), int32(2))

	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	merr := summary.Err()
	require.Error(t, merr)
	assert.Contains(t, merr.Error(), "1 error(s) occurred")
	assert.Contains(t, merr.Error(), "bad.xlsx: No VBA code found in file")
}

func TestConvertDirectory_AllSucceed(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.xlsx")
	out := filepath.Join(t.TempDir(), "out")

	summary, err := NewRunner(&fakeConverter{}).ConvertDirectory(context.Background(), root, out)
	require.NoError(t, err)
	assert.Equal(t, "Processed 1 files\nSuccessfully converted: 1\nFailed: 0", summary.Text)
	assert.Equal(t, out, summary.OutputDir)
	assert.NoError(t, summary.Err())
}

func TestConvertDirectory_NoFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "notes.txt")

	summary, err := NewRunner(&fakeConverter{}).ConvertDirectory(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, &Summary{OutputDir: root, Text: NoFilesSummary}, summary)
	assert.NoDirExists(t, filepath.Join(root, DefaultOutputDir))
}

func TestConvertDirectory_MissingDirectory(t *testing.T) {
	_, err := NewRunner(&fakeConverter{}).ConvertDirectory(context.Background(), filepath.Join(t.TempDir(), "gone"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory not found")
}

func TestConvertDirectory_StopOnError(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a_bad.xlsx", "b.xlsx", "c.xlsx")

	summary, err := NewRunner(&fakeConverter{},
		WithWorkers(1),
		WithContinueOnError(false),
	).ConvertDirectory(context.Background(), root, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStopped))
	assert.Contains(t, err.Error(), "a_bad.xlsx")

	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 0, summary.Converted)
	assert.Equal(t, 3, summary.Failed)
}

func TestConvertDirectory_Canceled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.xlsx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := NewRunner(&fakeConverter{}).ConvertDirectory(ctx, root, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 1, summary.Failed)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"book.xlsm", filepath.Join("out", "book_converted.py")},
		{filepath.Join("a", "b.v2.xls"), filepath.Join("out", "a", "b.v2_converted.py")},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputPath("out", tt.rel))
		})
	}
}
