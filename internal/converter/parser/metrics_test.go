package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDifficultyFor(t *testing.T) {
	tests := []struct {
		complexity int
		expected   Difficulty
	}{
		{0, DifficultyEasy},
		{9, DifficultyEasy},
		{10, DifficultyMedium},
		{19, DifficultyMedium},
		{20, DifficultyHard},
		{250, DifficultyHard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, DifficultyFor(tt.complexity), "complexity %d", tt.complexity)
	}
}

func TestComputeMetrics(t *testing.T) {
	src := `Function ComplexFunction(data As Variant) As Boolean
    Dim i As Integer, j As Integer
    Dim result As Boolean

    For i = 1 To UBound(data)
        If IsArray(data(i)) Then
            For j = 1 To UBound(data(i))
                Select Case data(i)(j)
                    Case Is > 100
                        If j Mod 2 = 0 Then
                            result = True
                        End If
                    Case 50 To 99
                        While result = False
                            result = ProcessItem(data(i)(j))
                        Wend
                    Case Else
                        result = False
                End Select
            Next j
        End If
    Next i

    ComplexFunction = result
End Function

Sub ProcessItem(item As Variant)
    ' Simple processing
End Sub`

	m := Parse(src)
	metrics := ComputeMetrics(m)

	assert.Greater(t, metrics.CyclomaticComplexity, 10)
	assert.Equal(t, 2, metrics.RoutineCount)
	assert.Equal(t, 0, metrics.VariableCount)
	assert.Contains(t, []Difficulty{DifficultyMedium, DifficultyHard}, metrics.Difficulty)
	assert.Greater(t, metrics.MaxRoutineComplexity, 5)
	assert.InDelta(t, float64(m.Routines[0].Complexity+1)/2, metrics.AverageRoutineComplexity, 1e-9)
	assert.InDelta(t, 1.0/float64(m.LineCount), metrics.CommentRatio, 1e-9)
}

func TestComputeMetrics_Empty(t *testing.T) {
	metrics := ComputeMetrics(Parse(""))
	assert.Equal(t, Metrics{Difficulty: DifficultyEasy}, metrics)
}
