package parser

import (
	"regexp"
	"sort"
	"strings"
)

// Dependency tags reported by AnalyzeDependencies.
const (
	HostTagPrefix = "Excel."
	NativeAPITag  = "Windows API"
	FileSystemTag = "FileSystem"
	ScriptingTag  = "Scripting"
)

// HostObjects is the vocabulary of host application objects looked for in
// source text.
var HostObjects = []string{"APPLICATION", "WORKBOOK", "WORKSHEET", "RANGE", "CELLS"}

var (
	hostObjectPatterns = func() map[string]*regexp.Regexp {
		patterns := make(map[string]*regexp.Regexp, len(HostObjects))
		for _, obj := range HostObjects {
			patterns[obj] = regexp.MustCompile(`(?i)\b` + obj + `\b`)
		}
		return patterns
	}()
	nativeAPIPattern = regexp.MustCompile(`(?i)\bdeclare\b.*\blib\b`)
)

// AnalyzeDependencies reports the external objects and platform APIs that
// src refers to. The result is sorted and free of duplicates.
func AnalyzeDependencies(src string) []string {
	found := make(map[string]struct{})
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || IsComment(line) {
			continue
		}
		for _, obj := range HostObjects {
			if hostObjectPatterns[obj].MatchString(line) {
				found[HostTagPrefix+obj] = struct{}{}
			}
		}
		if nativeAPIPattern.MatchString(line) {
			found[NativeAPITag] = struct{}{}
		}
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "FILESYSTEM") {
			found[FileSystemTag] = struct{}{}
		}
		if strings.Contains(upper, "SCRIPTING") {
			found[ScriptingTag] = struct{}{}
		}
	}

	deps := make([]string, 0, len(found))
	for dep := range found {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}
