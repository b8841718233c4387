package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Format selects how a command renders its result.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// AddOutputFlag registers -o/--output on cmd.
func AddOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(FormatText), "Output format (text, json or yaml)")
}

// OutputFormat reads and validates the --output flag.
func OutputFormat(cmd *cobra.Command) (Format, error) {
	raw, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", err
	}
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}

// Render writes v as JSON or YAML, or calls text for the human format.
func Render(w io.Writer, format Format, v any, text func(io.Writer)) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(w)
		return nil
	}
}
