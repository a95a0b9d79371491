package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const controlStructures = `Sub ControlStructures()
    Dim i As Integer, j As Integer

    ' If statement
    If i > 0 Then
        MsgBox "Positive"
    ElseIf i < 0 Then
        MsgBox "Negative"
    Else
        MsgBox "Zero"
    End If

    ' For loop
    For i = 1 To 10 Step 2
        MsgBox i
    Next i

    ' While loop
    While i < 100
        i = i * 2
    Wend

    ' Select Case
    Select Case i
        Case 1 To 10
            MsgBox "Small"
        Case Else
            MsgBox "Large"
    End Select
End Sub`

func TestParse_SimpleSub(t *testing.T) {
	m := Parse("Sub T()\n  Dim x As Integer\n  x = 1\nEnd Sub")

	require.Len(t, m.Routines, 1)
	r := m.Routines[0]
	assert.Equal(t, "T", r.Name)
	assert.Equal(t, KindSub, r.Kind)
	assert.Equal(t, Public, r.Visibility)
	assert.Equal(t, 1, r.StartLine)
	assert.Equal(t, 4, r.EndLine)
	assert.Equal(t, 1, r.Complexity)
	assert.Empty(t, r.Parameters)

	require.Len(t, r.Variables, 1)
	assert.Equal(t, Variable{Name: "x", Type: "Integer", Scope: ScopeLocal, Line: 2}, r.Variables[0])
	assert.Empty(t, m.Variables)

	assert.Equal(t, 4, m.LineCount)
	assert.Equal(t, 4, m.CodeLines)
	assert.Equal(t, 0, m.CommentLines)
	assert.Equal(t, 0, m.ComplexityScore)
}

func TestParse_Visibility(t *testing.T) {
	src := `Public Sub MainSub()
    Call HelperFunction("test")
End Sub

Private Function HelperFunction(param As String) As Boolean
    HelperFunction = True
End Function

Function AnotherFunction(num As Integer) As String
    AnotherFunction = CStr(num * 2)
End Function`

	m := Parse(src)
	require.Len(t, m.Routines, 3)

	tests := []struct {
		name       string
		kind       RoutineKind
		visibility Visibility
		start, end int
	}{
		{"MainSub", KindSub, Public, 1, 3},
		{"HelperFunction", KindFunction, Private, 5, 7},
		{"AnotherFunction", KindFunction, Public, 9, 11},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := m.Routines[i]
			assert.Equal(t, tt.name, r.Name)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, tt.visibility, r.Visibility)
			assert.Equal(t, tt.start, r.StartLine)
			assert.Equal(t, tt.end, r.EndLine)
		})
	}

	helper, ok := m.Routine("helperfunction")
	require.True(t, ok)
	require.Len(t, helper.Parameters, 1)
	assert.Equal(t, "param", helper.Parameters[0].Name)
	assert.Equal(t, "String", helper.Parameters[0].Type)
}

func TestParse_CommentsAndCounters(t *testing.T) {
	src := "' header comment\nREM another\nRem\n\nDim counter As Long\n"
	m := Parse(src)

	assert.Equal(t, 6, m.LineCount)
	assert.Equal(t, 3, m.CommentLines)
	assert.Equal(t, 1, m.CodeLines)
	require.Len(t, m.Variables, 1)
	assert.Equal(t, ScopeModule, m.Variables[0].Scope)
	assert.Equal(t, "Long", m.Variables[0].Type)
	assert.Equal(t, 5, m.Variables[0].Line)
}

func TestParse_RemPrefixedIdentifierIsCode(t *testing.T) {
	m := Parse("Remaining = 3")
	assert.Equal(t, 0, m.CommentLines)
	assert.Equal(t, 1, m.CodeLines)
}

func TestParse_ControlStructureComplexity(t *testing.T) {
	m := Parse(controlStructures)

	require.Len(t, m.Routines, 1)
	r := m.Routines[0]
	assert.GreaterOrEqual(t, m.ComplexityScore, 4)
	assert.GreaterOrEqual(t, r.Complexity, 4)
	assert.Equal(t, m.ComplexityScore, r.Complexity-1)
}

func TestParse_TwoKeywordsOnOneLineCountTwice(t *testing.T) {
	m := Parse("Sub S()\nSelect Case x\nEnd Sub")
	assert.Equal(t, 2, m.ComplexityScore)
	assert.Equal(t, 3, m.Routines[0].Complexity)
}

func TestParse_KeywordsInTrailingCommentIgnored(t *testing.T) {
	m := Parse("x = 1 ' if this then that")
	assert.Equal(t, 0, m.ComplexityScore)
}

func TestParse_KeywordsMatchWholeWords(t *testing.T) {
	m := Parse("Sub IfCheck()\nFormat = Wide\nEnd Sub")
	assert.Equal(t, 0, m.ComplexityScore)
}

func TestParse_ModuleScoreCoversRoutineScores(t *testing.T) {
	src := "If a Then b\nSub A()\nIf x Then y\nFor i = 1 To 2\nEnd Sub\nSub B()\nWhile z\nEnd Sub"
	m := Parse(src)

	sum := 0
	for _, r := range m.Routines {
		assert.GreaterOrEqual(t, r.Complexity, 1)
		sum += r.Complexity - 1
	}
	assert.GreaterOrEqual(t, m.ComplexityScore, sum)
	assert.Equal(t, 4, m.ComplexityScore)
}

func TestParse_UnclosedRoutineEndsAtLastLine(t *testing.T) {
	m := Parse("Sub Open()\n  x = 1\n  y = 2")
	require.Len(t, m.Routines, 1)
	assert.Equal(t, 3, m.Routines[0].EndLine)
	assert.True(t, m.Routines[0].Closed())
}

func TestParse_BackToBackRoutines(t *testing.T) {
	m := Parse("Sub First()\n  a = 1\nSub Second()\n  b = 2\nEnd Sub")
	require.Len(t, m.Routines, 2)
	assert.Equal(t, 2, m.Routines[0].EndLine)
	assert.Equal(t, 3, m.Routines[1].StartLine)
	assert.Equal(t, 5, m.Routines[1].EndLine)
}

func TestParse_EndWithoutOpenRoutineIgnored(t *testing.T) {
	m := Parse("End Sub\nSub A()\nEnd Sub")
	require.Len(t, m.Routines, 1)
	assert.Equal(t, 2, m.Routines[0].StartLine)
}

func TestParse_Constants(t *testing.T) {
	src := `Const MAX_ITEMS As Integer = 100
Const PI As Double = 3.14159
Public Const APP_NAME As String = "VBA, Converter" ' trailing
Sub UseConstants()
    Const LOCAL_LIMIT = 5
End Sub`

	m := Parse(src)
	require.Len(t, m.Constants, 4)

	byName := map[string]Constant{}
	for _, c := range m.Constants {
		byName[c.Name] = c
	}
	assert.Equal(t, "Integer", byName["MAX_ITEMS"].Type)
	assert.Equal(t, "100", byName["MAX_ITEMS"].Value)
	assert.Equal(t, "3.14159", byName["PI"].Value)
	assert.Equal(t, `"VBA, Converter"`, byName["APP_NAME"].Value)
	assert.Equal(t, DefaultType, byName["LOCAL_LIMIT"].Type)
	assert.Equal(t, 5, byName["LOCAL_LIMIT"].Line)
}

func TestParse_ModuleLevelDeclarations(t *testing.T) {
	src := `Option Explicit
Private counter As Long
Public Declare Function GetTickCount Lib "kernel32" () As Long
Dim a As String, b
Public Type Point
End Type`

	m := Parse(src)
	names := []string{}
	for _, v := range m.Variables {
		names = append(names, v.Name)
		assert.Equal(t, ScopeModule, v.Scope)
	}
	assert.Equal(t, []string{"counter", "a", "b"}, names)
	assert.Equal(t, DefaultType, m.Variables[2].Type)
}

func TestParse_MultilineSignature(t *testing.T) {
	src := `Private Function ComplexFunc(ByVal param1 As String, _
                           ByRef param2 As Long, _
                           Optional param3 As Boolean = False, _
                           ParamArray args() As Variant) As Variant
    Dim localVar As Integer
    localVar = 42
    ComplexFunc = localVar
End Function`

	m := Parse(src)
	require.Len(t, m.Routines, 1)
	r := m.Routines[0]
	assert.Equal(t, Private, r.Visibility)
	assert.Equal(t, 1, r.StartLine)
	assert.Equal(t, 4, r.HeaderEndLine)
	require.Len(t, r.Parameters, 4)

	assert.Equal(t, Parameter{Name: "param1", Type: "String"}, r.Parameters[0])
	assert.Equal(t, Parameter{Name: "param2", Type: "Long", ByRef: true}, r.Parameters[1])
	assert.Equal(t, Parameter{Name: "param3", Type: "Boolean", Optional: true, ByRef: true, Default: "False"}, r.Parameters[2])
	assert.Equal(t, Parameter{Name: "args", Type: "Variant", ByRef: true, ParamArray: true}, r.Parameters[3])
}

func TestParse_Idempotent(t *testing.T) {
	first := Parse(controlStructures)
	second := Parse(controlStructures)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Parse not deterministic (-first +second):\n%s", diff)
	}
}

func TestParse_CRLF(t *testing.T) {
	m := Parse("Sub T()\r\n  x = 1\r\nEnd Sub\r\n")
	require.Len(t, m.Routines, 1)
	assert.Equal(t, 3, m.Routines[0].EndLine)
	assert.Equal(t, 3, m.CodeLines)
}

func TestParse_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"(((",
		"Sub",
		"Function F(,,,",
		"Dim",
		"Const = 5",
		strings.Repeat("End If\n", 5),
		"Sub X(\"unterminated",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}
