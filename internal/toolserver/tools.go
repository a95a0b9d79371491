package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"martianoff/vbapy/internal/batch"
	"martianoff/vbapy/internal/converter"
	"martianoff/vbapy/internal/extract"
)

// Tool describes one callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the result of tools/call. Tool failures set IsError rather
// than failing the request.
type CallResult struct {
	Content           []Content      `json:"content"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

type tool struct {
	Tool
	call func(ctx context.Context, args json.RawMessage) (map[string]any, error)
}

// Tools lists the available tools in registration order.
func (s *Server) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	for i, t := range s.tools {
		out[i] = t.Tool
	}
	return out
}

// CallTool runs the named tool. An unknown name is a protocol error; any
// failure of the tool itself is reported in the result.
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallResult, error) {
	for _, t := range s.tools {
		if t.Name != name {
			continue
		}
		out, err := t.call(ctx, args)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err)
			return errorResult(err.Error()), nil
		}
		return successResult(out), nil
	}
	return nil, invalidParams(fmt.Sprintf("unknown tool: %s", name))
}

func successResult(out map[string]any) *CallResult {
	out["success"] = true
	text, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errorResult(err.Error())
	}
	return &CallResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: out,
	}
}

func errorResult(msg string) *CallResult {
	return &CallResult{
		Content:           []Content{{Type: "text", Text: msg}},
		StructuredContent: map[string]any{"error": msg},
		IsError:           true,
	}
}

func schema(required []string, props map[string]string) map[string]any {
	properties := make(map[string]any, len(props))
	for name, desc := range props {
		properties[name] = map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// decodeArgs unmarshals tool arguments; a missing object decodes as empty.
func decodeArgs(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) registerTools() []tool {
	return []tool{
		{
			Tool: Tool{
				Name:        "convert_vba_file",
				Description: "Convert an Excel file containing VBA macros to Python code.",
				InputSchema: schema([]string{"file_path"}, map[string]string{
					"file_path":  "Path to the Excel file (.xls, .xlsx, .xlsm)",
					"output_dir": "Optional output directory for converted files",
				}),
			},
			call: s.convertFile,
		},
		{
			Tool: Tool{
				Name:        "extract_vba_code",
				Description: "Extract VBA code from an Excel file without conversion.",
				InputSchema: schema([]string{"file_path"}, map[string]string{
					"file_path": "Path to the Excel file",
				}),
			},
			call: s.extractCode,
		},
		{
			Tool: Tool{
				Name:        "analyze_vba_complexity",
				Description: "Analyze the complexity of VBA code in an Excel file.",
				InputSchema: schema([]string{"file_path"}, map[string]string{
					"file_path": "Path to the Excel file",
				}),
			},
			call: s.analyzeComplexity,
		},
		{
			Tool: Tool{
				Name:        "batch_convert_files",
				Description: "Convert multiple Excel files with VBA in a directory.",
				InputSchema: schema([]string{"directory_path"}, map[string]string{
					"directory_path": "Path to directory containing Excel files",
					"output_dir":     "Optional output directory for converted files",
				}),
			},
			call: s.batchConvert,
		},
		{
			Tool: Tool{
				Name:        "generate_python_equivalent",
				Description: "Generate Python code equivalent for provided VBA code.",
				InputSchema: schema([]string{"vba_code"}, map[string]string{
					"vba_code": "VBA code string to convert",
				}),
			},
			call: s.generateEquivalent,
		},
	}
}

type fileArgs struct {
	FilePath  string `json:"file_path"`
	OutputDir string `json:"output_dir"`
}

func (a fileArgs) existing() error {
	if a.FilePath == "" {
		return errors.New("file_path is required")
	}
	if _, err := os.Stat(a.FilePath); err != nil {
		return fmt.Errorf("File not found: %s", a.FilePath)
	}
	return nil
}

func (s *Server) convertFile(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args fileArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.existing(); err != nil {
		return nil, err
	}
	if !extract.Supported(args.FilePath) {
		return nil, errors.New("File must be an Excel file (.xls, .xlsx, .xlsm)")
	}

	out := ""
	if args.OutputDir != "" {
		out = filepath.Join(args.OutputDir, filepath.Base(converter.DefaultOutputPath(args.FilePath)))
	}
	res := s.conv.ConvertFile(ctx, args.FilePath, out)
	if !res.Success {
		return nil, errors.New(res.Error)
	}

	code, err := os.ReadFile(res.OutputFile)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"input_file":   res.InputFile,
		"output_file":  res.OutputFile,
		"vba_modules":  res.ModulesConverted,
		"python_lines": strings.Count(string(code), "\n") + 1,
	}, nil
}

func (s *Server) extractCode(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args fileArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.existing(); err != nil {
		return nil, err
	}

	modules, err := s.extractor.Extract(ctx, args.FilePath)
	if err != nil {
		return nil, err
	}
	if modules == nil {
		modules = []converter.Module{}
	}
	info := make(map[string]extract.ModuleInfo, len(modules))
	for _, m := range modules {
		info[m.Name] = extract.Summarize(m)
	}
	return map[string]any{
		"file_path":    args.FilePath,
		"vba_code":     modules,
		"modules":      info,
		"module_count": len(info),
	}, nil
}

func (s *Server) analyzeComplexity(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args fileArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.existing(); err != nil {
		return nil, err
	}

	modules, err := s.extractor.Extract(ctx, args.FilePath)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, errors.New("No VBA code found")
	}

	report := s.conv.Analyze(modules)
	return map[string]any{
		"file_path":             args.FilePath,
		"complexity_score":      report.ComplexityScore,
		"total_lines":           report.TotalLines,
		"function_count":        report.RoutineCount,
		"variable_count":        report.VariableCount,
		"dependencies":          report.Dependencies,
		"conversion_difficulty": report.Difficulty.String(),
		"recommendations":       report.Recommendations,
	}, nil
}

func (s *Server) batchConvert(ctx context.Context, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		DirectoryPath string `json:"directory_path"`
		OutputDir     string `json:"output_dir"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.DirectoryPath == "" {
		return nil, errors.New("directory_path is required")
	}
	if _, err := os.Stat(args.DirectoryPath); err != nil {
		return nil, fmt.Errorf("Directory not found: %s", args.DirectoryPath)
	}

	summary, err := s.runner.ConvertDirectory(ctx, args.DirectoryPath, args.OutputDir)
	if err != nil {
		return nil, err
	}
	if summary.Processed > 0 {
		if _, err := batch.WriteReport(summary, summary.OutputDir); err != nil {
			s.logger.Warn("could not write batch report", "error", err)
		}
	}
	return map[string]any{
		"directory":          args.DirectoryPath,
		"files_processed":    summary.Processed,
		"files_converted":    summary.Converted,
		"files_failed":       summary.Failed,
		"output_directory":   summary.OutputDir,
		"conversion_summary": summary.Text,
	}, nil
}

func (s *Server) generateEquivalent(_ context.Context, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		VBACode string `json:"vba_code"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.VBACode) == "" {
		return nil, errors.New("VBA code cannot be empty")
	}

	modules := []converter.Module{{Code: args.VBACode, Kind: converter.KindModule}}
	report := s.conv.Analyze(modules)
	return map[string]any{
		"input_vba":        args.VBACode,
		"output_python":    s.conv.Convert(modules),
		"conversion_notes": report.Recommendations,
		"complexity_score": report.ComplexityScore,
	}, nil
}

