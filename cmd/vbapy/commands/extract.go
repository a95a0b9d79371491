package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"martianoff/vbapy/internal/extract"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the macro source of a workbook without converting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print modules and metadata as JSON")
}

type extractedModule struct {
	Name string `json:"module_name"`
	Code string `json:"code"`
	extract.ModuleInfo
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := checkInput(path); err != nil {
		return err
	}

	modules, err := newPipeline().extractor.Extract(cmd.Context(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractJSON {
		list := make([]extractedModule, 0, len(modules))
		for _, m := range modules {
			list = append(list, extractedModule{Name: m.Name, Code: m.Code, ModuleInfo: extract.Summarize(m)})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(modules) == 0 {
		fmt.Fprintln(out, "No VBA code found in the file")
		return nil
	}
	for _, m := range modules {
		info := extract.Summarize(m)
		fmt.Fprintf(out, "' ==== %s (%s): %d lines, %d routines, %d declarations\n",
			m.Name, info.Kind, info.Lines, info.Functions, info.Variables)
		fmt.Fprintln(out, m.Code)
		fmt.Fprintln(out)
	}
	return nil
}
