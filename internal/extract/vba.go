package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

// Record ids of the project information stream.
const (
	recProjectVersion   = 0x0009
	recModuleName       = 0x0019
	recModuleStreamName = 0x001A
	recModuleOffset     = 0x0031
	recModuleTerminator = 0x002B
)

const noReadableCode = "' No readable VBA code found"

// Lines kept by the raw-text heuristic must mention one of these.
var sourceKeywords = []string{
	"SUB ", "FUNCTION ", "DIM ", "IF ", "THEN", "ELSE",
	"FOR ", "NEXT", "WHILE ", "END SUB", "END FUNCTION",
}

var attributeMarker = []byte("\x00Attribut")

// sourceModule is one code module recovered from a project.
type sourceModule struct {
	name string
	code string
}

// moduleRef locates a module's source inside its stream.
type moduleRef struct {
	name   string
	stream string
	offset uint32
}

// readProject walks a compound document and returns the source of every
// code module found in its VBA storage.
func readProject(r io.ReaderAt) ([]sourceModule, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return nil, fmt.Errorf("open compound document: %w", err)
	}

	streams := make(map[string][]byte)
	var order []string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if len(entry.Path) == 0 || !strings.EqualFold(entry.Path[len(entry.Path)-1], "VBA") {
			continue
		}
		data, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("read stream %s: %w", entry.Name, err)
		}
		if len(data) == 0 {
			continue
		}
		streams[entry.Name] = data
		order = append(order, entry.Name)
	}
	if len(streams) == 0 {
		return nil, nil
	}

	if dir, ok := streams["dir"]; ok {
		if refs, err := parseDirStream(dir); err == nil && len(refs) > 0 {
			return modulesFromRefs(refs, streams), nil
		}
	}
	return modulesByScan(order, streams), nil
}

// parseDirStream decompresses the project information stream and returns
// the module records it lists.
func parseDirStream(compressed []byte) ([]moduleRef, error) {
	data, err := Decompress(compressed)
	if err != nil {
		return nil, err
	}

	var refs []moduleRef
	var cur moduleRef
	pos := 0
	for pos+6 <= len(data) {
		id := binary.LittleEndian.Uint16(data[pos:])
		size := int(binary.LittleEndian.Uint32(data[pos+2:]))
		pos += 6
		if id == recProjectVersion {
			// The size field is fixed at 4 but six bytes follow.
			size = 6
		}
		if pos+size > len(data) {
			return refs, errors.New("truncated dir record")
		}
		body := data[pos : pos+size]
		pos += size

		switch id {
		case recModuleName:
			cur = moduleRef{name: decodeText(body)}
		case recModuleStreamName:
			cur.stream = decodeText(body)
		case recModuleOffset:
			if len(body) >= 4 {
				cur.offset = binary.LittleEndian.Uint32(body)
			}
		case recModuleTerminator:
			if cur.name != "" {
				if cur.stream == "" {
					cur.stream = cur.name
				}
				refs = append(refs, cur)
			}
			cur = moduleRef{}
		}
	}
	return refs, nil
}

func modulesFromRefs(refs []moduleRef, streams map[string][]byte) []sourceModule {
	var modules []sourceModule
	for _, ref := range refs {
		data, ok := streams[ref.stream]
		if !ok || int(ref.offset) >= len(data) {
			continue
		}
		src, err := Decompress(data[ref.offset:])
		if err != nil {
			continue
		}
		if code := cleanSource(src); code != "" {
			modules = append(modules, sourceModule{name: ref.name, code: code})
		}
	}
	return modules
}

// modulesByScan recovers module source without the dir stream by looking
// for the compressed "Attribute" header that starts every module's text.
func modulesByScan(order []string, streams map[string][]byte) []sourceModule {
	var modules []sourceModule
	for _, name := range order {
		if name == "dir" || strings.HasPrefix(name, "__SRP_") || strings.HasPrefix(name, "_VBA_PROJECT") {
			continue
		}
		src, ok := scanCompressedSource(streams[name])
		if !ok {
			continue
		}
		if code := cleanSource(src); code != "" {
			modules = append(modules, sourceModule{name: name, code: code})
		}
	}
	return modules
}

func scanCompressedSource(data []byte) ([]byte, bool) {
	idx := bytes.Index(data, attributeMarker)
	if idx < 3 {
		return nil, false
	}
	src, err := Decompress(data[idx-3:])
	if err != nil || len(src) == 0 {
		return nil, false
	}
	return src, true
}

// cleanSource decodes module text, normalises line endings and drops the
// hidden Attribute lines.
func cleanSource(src []byte) string {
	text := strings.ReplaceAll(decodeText(src), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Attribute VB_") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// decodeText converts the project's Windows-1252 text to UTF-8.
func decodeText(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// readableLines keeps the lines of raw stream bytes that look like macro
// source. It is the last resort when no module could be decompressed.
func readableLines(raw []byte) string {
	text := strings.ToValidUTF8(string(raw), "")
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		for _, kw := range sourceKeywords {
			if strings.Contains(upper, kw) {
				kept = append(kept, line)
				break
			}
		}
	}
	if len(kept) == 0 {
		return noReadableCode
	}
	return strings.Join(kept, "\n")
}
