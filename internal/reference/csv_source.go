package reference

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed data/reference.csv
var embeddedReference []byte

// CSVSource reads the reference table from comma-separated data with a header row.
type CSVSource struct {
	name string
	open func() (io.ReadCloser, error)
}

// NewCSVSource creates a source that reads from r once.
func NewCSVSource(name string, r io.Reader) *CSVSource {
	return &CSVSource{
		name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// NewFileSource creates a source reading the CSV file at path.
func NewFileSource(path string) *CSVSource {
	return &CSVSource{
		name: path,
		open: func() (io.ReadCloser, error) { return os.Open(path) }, //nolint:gosec // path comes from operator config
	}
}

// EmbeddedSource returns the reference table bundled with the binary.
func EmbeddedSource() *CSVSource {
	return &CSVSource{
		name: "embedded",
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(embeddedReference)), nil
		},
	}
}

// Name returns the source name.
func (s *CSVSource) Name() string {
	return s.name
}

// Read parses the whole CSV document.
func (s *CSVSource) Read(ctx context.Context) (*RawTable, error) {
	rc, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return &RawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := &RawTable{Columns: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}
