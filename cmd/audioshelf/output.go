package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseOutputFormat(raw string) (outputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "table":
		return formatTable, nil
	case "json":
		return formatJSON, nil
	case "yaml", "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", raw)
	}
}

// listing is a payload with its table rendering.
type listing struct {
	payload any
	headers []string
	rows    [][]string
	aligns  []columnAlignment
	empty   string
}

func printListing(cmd *cobra.Command, format outputFormat, l listing) error {
	switch format {
	case formatJSON:
		return writeJSON(cmd, l.payload)
	case formatYAML:
		return writeYAML(cmd, l.payload)
	}
	out := cmd.OutOrStdout()
	if len(l.rows) == 0 && l.empty != "" {
		fmt.Fprintln(out, l.empty)
		return nil
	}
	fmt.Fprintln(out, renderTable(l.headers, l.rows, l.aligns, isTerminal(cmd)))
	return nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML using its JSON field names.
func writeYAML(cmd *cobra.Command, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
