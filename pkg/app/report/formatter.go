// Package report renders command results as a table, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Tabular is a result that knows how to lay itself out as a table
type Tabular interface {
	WriteTable(w io.Writer)
}

// Formats lists the accepted output formats
var Formats = []string{"table", "json", "yaml"}

// ValidFormat reports whether format is one of Formats
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Write renders result to w in the given format
func Write(w io.Writer, format string, result Tabular) error {
	switch format {
	case "json":
		return formatJSON(w, result)
	case "yaml":
		return formatYAML(w, result)
	case "table":
		return formatTable(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatTable aligns the rows written by the result
func formatTable(w io.Writer, result Tabular) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	result.WriteTable(tw)
	return tw.Flush()
}

// formatJSON formats results as JSON
func formatJSON(w io.Writer, result Tabular) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// formatYAML formats results as YAML
func formatYAML(w io.Writer, result Tabular) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(result)
}
