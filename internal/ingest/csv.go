package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

// RowParser decodes raw batch input into validated rows.
type RowParser interface {
	Parse(raw []byte) ([]domain.Row, error)
}

var requiredColumns = []string{"family_key", "title", "details"}

const optionKeyColumn = "option_key"

// CSVRowParser parses comma-separated input with a header line. The
// option_key column is optional; family_key, title and details are
// required and must be non-empty on every row.
type CSVRowParser struct{}

func NewCSVRowParser() *CSVRowParser {
	return &CSVRowParser{}
}

func (p *CSVRowParser) Parse(raw []byte) ([]domain.Row, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: input is empty", domain.ErrParse)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", domain.ErrParse, err)
	}

	columns, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.Row
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrParse, line, err)
		}

		row, err := recordToRow(record, columns)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrParse, line, err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: input has no data rows", domain.ErrParse)
	}

	return rows, nil
}

type columnIndexes struct {
	familyKey int
	optionKey int
	title     int
	details   int
}

func resolveColumns(header []string) (columnIndexes, error) {
	indexes := columnIndexes{familyKey: -1, optionKey: -1, title: -1, details: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "family_key":
			indexes.familyKey = i
		case optionKeyColumn:
			indexes.optionKey = i
		case "title":
			indexes.title = i
		case "details":
			indexes.details = i
		}
	}

	for _, required := range requiredColumns {
		missing := false
		switch required {
		case "family_key":
			missing = indexes.familyKey < 0
		case "title":
			missing = indexes.title < 0
		case "details":
			missing = indexes.details < 0
		}
		if missing {
			return columnIndexes{}, fmt.Errorf("%w: missing required column %q", domain.ErrParse, required)
		}
	}

	return indexes, nil
}

func recordToRow(record []string, columns columnIndexes) (domain.Row, error) {
	field := func(index int) string {
		if index < 0 || index >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[index])
	}

	row := domain.Row{
		FamilyKey: field(columns.familyKey),
		Title:     field(columns.title),
		Details:   field(columns.details),
	}
	if optionKey := field(columns.optionKey); optionKey != "" {
		row.OptionKey = &optionKey
	}

	if err := row.Validate(); err != nil {
		return domain.Row{}, err
	}

	return row, nil
}
