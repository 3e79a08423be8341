package export

import (
	"fmt"
	"strings"
)

// Dataset is an ordered table ready for rendering.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Exporter renders a dataset into a downloadable format.
type Exporter interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the exporter registered for format ("csv" or "pdf").
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func validate(data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("export requires at least one header")
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(data.Headers))
		}
	}
	return nil
}
