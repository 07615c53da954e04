package export

import (
	"fmt"
	"strings"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Field is a labelled value printed above the table.
type Field struct {
	Label string
	Value string
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Fields  []Field
	Headers []string
	Rows    []map[string]string
}

// Renderer encodes a dataset.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Render encodes data using the renderer for format.
func Render(format Format, data Dataset) ([]byte, error) {
	switch format {
	case FormatPDF:
		return NewPDFExporter().Render(data)
	case FormatCSV:
		return NewCSVExporter().Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
