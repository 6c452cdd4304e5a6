package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	DefaultRegistry.Register(KindCSV, []string{".csv"}, func() Extractor {
		return NewCSVExtractor()
	})
}

// CSVExtractor reads the external ids out of one CSV data file. The
// target model comes from the file basename, following the loader
// convention (ir.model.access.csv loads ir.model.access records).
type CSVExtractor struct{}

// NewCSVExtractor creates a CSV extractor.
func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

// Extract parses the file at path. Files without an id column yield
// empty facts; a malformed record keeps the rows read so far and sets
// a ParseError.
func (c *CSVExtractor) Extract(ctx context.Context, path string) (*Unit, error) {
	base := filepath.Base(path)
	facts := &CSVFacts{Model: strings.TrimSuffix(base, filepath.Ext(base))}
	unit := &Unit{Path: path, Kind: KindCSV, CSV: facts}

	f, err := os.Open(path)
	if err != nil {
		unit.ParseError = &ParseError{Message: err.Error()}
		return unit, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return unit, nil
	}
	if err != nil {
		unit.ParseError = csvParseError(err)
		return unit, nil
	}

	idIndex := -1
	for i, name := range header {
		if name == "id" {
			idIndex = i
			break
		}
	}
	if idIndex == -1 {
		return unit, nil
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			unit.ParseError = csvParseError(err)
			break
		}
		if idIndex >= len(record) || record[idIndex] == "" {
			continue
		}
		line, _ := reader.FieldPos(0)
		facts.Rows = append(facts.Rows, CSVRow{ID: record[idIndex], Line: line})
	}
	return unit, nil
}

func csvParseError(err error) *ParseError {
	perr := &ParseError{Message: err.Error()}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		perr.Line = parseErr.Line
	}
	return perr
}
