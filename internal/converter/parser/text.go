package parser

import (
	"regexp"
	"strings"
)

var commentPattern = regexp.MustCompile(`(?i)^(?:'|rem(?:\s|$))`)

// IsComment reports whether a trimmed line is a whole-line comment
// (an apostrophe or the REM keyword).
func IsComment(line string) bool {
	return commentPattern.MatchString(line)
}

// CommentText returns the body of a whole-line comment without its marker.
func CommentText(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "'") {
		return strings.TrimSpace(line[1:])
	}
	if len(line) >= 3 && strings.EqualFold(line[:3], "rem") {
		return strings.TrimSpace(line[3:])
	}
	return line
}

// SplitComment separates a trailing apostrophe comment from a code line.
// Apostrophes inside string literals are ignored. The returned comment has
// its marker removed.
func SplitComment(line string) (code, comment string) {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '\'':
			if !inString {
				return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
			}
		}
	}
	return strings.TrimSpace(line), ""
}

// StripComment returns line without any trailing comment.
func StripComment(line string) string {
	code, _ := SplitComment(line)
	return code
}

// SplitTopLevel splits s on sep, ignoring separators nested in parentheses
// or string literals.
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// IndexTopLevel returns the index of the first sep outside parentheses and
// string literals, or -1.
func IndexTopLevel(s string, sep byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}

// matchingParen returns the index of the parenthesis closing the one at
// open, or -1 when the text ends first.
func matchingParen(s string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// hasContinuation reports whether a code line ends with the " _" line
// continuation marker.
func hasContinuation(code string) bool {
	return code == "_" || strings.HasSuffix(code, " _") || strings.HasSuffix(code, "\t_")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
