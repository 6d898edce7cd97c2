// Package render formats checkpoint statistics documents for terminals and browsers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
)

// Format is a text output format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatYAML}
}

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))

	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Options control text rendering.
type Options struct {
	JobID string
	Color bool
}

// Write renders doc to w in format.
func Write(w io.Writer, doc api.Statistics, format Format, opts Options) error {
	switch format {
	case FormatTable:
		_, err := io.WriteString(w, Table(doc, opts))
		if err != nil {
			return fmt.Errorf("write table: %w", err)
		}

		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(doc)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
