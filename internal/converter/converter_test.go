package converter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/vbapy/converr"
	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/converter/generator"
)

const simpleSub = "Sub T()\n  Dim x As Integer\n  x = 1\nEnd Sub"

type fakeExtractor struct {
	modules []converter.Module
	err     error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) ([]converter.Module, error) {
	return f.modules, f.err
}

type panicGenerator struct{}

func (panicGenerator) Generate([]converter.Module) string {
	panic("boom")
}

func newConverter(ext converter.Extractor) *converter.Converter {
	return converter.NewConverter(generator.NewPythonGenerator(), converter.WithExtractor(ext))
}

func TestConvert_Empty(t *testing.T) {
	c := newConverter(nil)
	assert.Equal(t, "# No VBA code found to convert", c.Convert(nil))
}

func TestConvert_HeaderAndFooterOnce(t *testing.T) {
	c := newConverter(nil)
	out := c.Convert([]converter.Module{{Name: "Module1", Code: simpleSub, Kind: converter.KindModule}})

	require.NotEmpty(t, out)
	assert.True(t, strings.HasPrefix(out, "\"\"\"\nConverted from VBA to Python\nGenerated automatically - review and test before use\n\"\"\"\n"))
	assert.Equal(t, 1, strings.Count(out, "Converted from VBA to Python"))
	assert.Equal(t, 1, strings.Count(out, `if __name__ == "__main__":`))
	assert.True(t, strings.HasSuffix(out, "\n\n\nif __name__ == \"__main__\":\n    # Example usage\n    pass  # TODO: Add example usage"))
	assert.Contains(t, out, "def t() -> None:")
	assert.Contains(t, out, "    x: int = None\n    x = 1")
}

func TestFormat_CollapsesBlankLines(t *testing.T) {
	out := converter.Format("a\n\n\n   \nb\n")
	assert.Contains(t, out, "\"\"\"\n\na\n\nb\n")
	assert.NotContains(t, out, "a\n\n\nb")
}

func TestConvert_RecoversFromPanic(t *testing.T) {
	c := converter.NewConverter(panicGenerator{})
	out := c.Convert([]converter.Module{{Name: "M", Code: simpleSub}})
	assert.Equal(t, "# Conversion failed: boom", out)
}

func TestAnalyze_Empty(t *testing.T) {
	c := newConverter(nil)
	report := c.Analyze(nil)

	assert.Equal(t, 0, report.ComplexityScore)
	assert.Equal(t, 0, report.TotalLines)
	assert.Equal(t, 0, report.RoutineCount)
	assert.Equal(t, 0, report.VariableCount)
	assert.NotNil(t, report.Dependencies)
	assert.Empty(t, report.Dependencies)
	assert.Equal(t, converter.Easy, report.Difficulty)
}

func TestAnalyze_SimpleSub(t *testing.T) {
	c := newConverter(nil)
	report := c.Analyze([]converter.Module{{Name: "Module1", Code: simpleSub}})

	assert.Equal(t, 1, report.RoutineCount)
	assert.Equal(t, converter.Easy, report.Difficulty)
	assert.Equal(t, 4, report.TotalLines)
	assert.Equal(t, "Low complexity. Conversion should be straightforward.", report.Recommendations[0])
	assert.Len(t, report.Recommendations, 6)
}

func TestAnalyze_UnionsDependencies(t *testing.T) {
	c := newConverter(nil)
	report := c.Analyze([]converter.Module{
		{Name: "A", Code: "Sub A()\n    Application.Workbooks.Open \"x.xlsx\"\nEnd Sub"},
		{Name: "B", Code: "Private Declare PtrSafe Function GetTickCount Lib \"kernel32\" () As Long\nSub B()\n    Application.ScreenUpdating = False\nEnd Sub"},
	})

	assert.Equal(t, []string{"Excel.APPLICATION", "Windows API"}, report.Dependencies)
	assert.Equal(t, 2, report.RoutineCount)
}

func TestAnalyze_SumsComplexity(t *testing.T) {
	loop := "Sub L()\n    For i = 1 To 3\n        If i > 1 Then x = i\n    Next i\nEnd Sub"
	c := newConverter(nil)

	modules := make([]converter.Module, 10)
	for i := range modules {
		modules[i] = converter.Module{Name: "M", Code: loop}
	}
	report := c.Analyze(modules)

	assert.Equal(t, 20, report.ComplexityScore)
	assert.Equal(t, converter.Medium, report.Difficulty)
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name       string
		complexity int
		routines   int
		deps       int
		expected   []string
	}{
		{
			name:       "low complexity",
			complexity: 5,
			expected:   []string{"Low complexity. Conversion should be straightforward."},
		},
		{
			name:       "middle ground has only general advice",
			complexity: 30,
			routines:   20,
			deps:       5,
		},
		{
			name:       "everything triggers",
			complexity: 51,
			routines:   21,
			deps:       6,
			expected: []string{
				"High complexity detected. Consider breaking down into smaller functions.",
				"Many functions detected. Consider organizing into classes or modules.",
				"Multiple dependencies detected. Review external library requirements.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := converter.Recommendations(tt.complexity, tt.routines, tt.deps)
			require.Len(t, recs, len(tt.expected)+5)
			assert.Equal(t, tt.expected, recs[:len(tt.expected)])
			assert.Equal(t, "Document any manual adjustments needed", recs[len(recs)-1])
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "book_converted.py"), converter.DefaultOutputPath(filepath.Join("data", "book.xlsm")))
}

func TestConvertFile_Success(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "book.xlsm")
	ext := &fakeExtractor{modules: []converter.Module{{Name: "Module1", Code: simpleSub, Kind: converter.KindModule}}}
	c := newConverter(ext)

	result := c.ConvertFile(context.Background(), input, "")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, input, result.InputFile)
	assert.Equal(t, filepath.Join(dir, "book_converted.py"), result.OutputFile)
	assert.Equal(t, 1, result.ModulesConverted)
	require.NotNil(t, result.ComplexityAnalysis)
	assert.Equal(t, 1, result.ComplexityAnalysis.RoutineCount)

	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "def t() -> None:")
}

func TestConvertFile_ExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "result.py")
	c := newConverter(&fakeExtractor{modules: []converter.Module{{Name: "M", Code: simpleSub}}})

	result := c.ConvertFile(context.Background(), filepath.Join(dir, "book.xlsm"), out)

	require.True(t, result.Success, result.Error)
	assert.FileExists(t, out)
}

func TestConvertFile_Failures(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		ext      converter.Extractor
		wantType converr.ErrorType
		wantMsg  string
	}{
		{
			name:     "unsupported file",
			ctx:      context.Background(),
			ext:      &fakeExtractor{err: converr.NewUnsupportedFileError("a.txt", ".txt")},
			wantType: converr.TypeUnsupported,
			wantMsg:  "unsupported file format: .txt",
		},
		{
			name:     "no modules",
			ctx:      context.Background(),
			ext:      &fakeExtractor{},
			wantType: converr.TypeConversion,
			wantMsg:  "No VBA code found in file",
		},
		{
			name:     "extraction failure",
			ctx:      context.Background(),
			ext:      &fakeExtractor{err: converr.NewExtractionError("a.xlsm", errors.New("corrupt"))},
			wantType: converr.TypeExtraction,
			wantMsg:  "corrupt",
		},
		{
			name:    "canceled context",
			ctx:     canceled,
			ext:     &fakeExtractor{},
			wantMsg: "context canceled",
		},
		{
			name:     "no extractor",
			ctx:      context.Background(),
			wantType: converr.TypeExtraction,
			wantMsg:  "no extractor configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConverter(tt.ext)
			result := c.ConvertFile(tt.ctx, filepath.Join(t.TempDir(), "a.xlsm"), "")

			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantMsg)
			assert.Equal(t, tt.wantType, result.ErrorType)
			assert.Empty(t, result.OutputFile)
			assert.Nil(t, result.ComplexityAnalysis)
		})
	}
}

func TestConvertFile_OutputError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c := newConverter(&fakeExtractor{modules: []converter.Module{{Name: "M", Code: simpleSub}}})
	result := c.ConvertFile(context.Background(), filepath.Join(dir, "a.xlsm"), filepath.Join(blocker, "out.py"))

	assert.False(t, result.Success)
	assert.Equal(t, converr.TypeOutput, result.ErrorType)
}
