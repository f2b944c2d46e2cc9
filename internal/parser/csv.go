package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// csvBatchRows is how many data rows go into one section.
const csvBatchRows = 20

// CSVParser handles CSV files. The header row labels every cell, and data
// rows are grouped into fixed-size sections titled by their row range.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Outline, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	o := &doctree.Outline{Title: baseTitle(filename)}
	if len(records) == 0 {
		return o, nil
	}

	headers, rows := records[0], records[1:]
	for start := 0; start < len(rows); start += csvBatchRows {
		end := min(start+csvBatchRows, len(rows))

		var b strings.Builder
		b.WriteString("Columns: " + strings.Join(headers, ", ") + "\n")
		for _, row := range rows[start:end] {
			cells := make([]string, len(row))
			for j, cell := range row {
				if j < len(headers) && headers[j] != "" {
					cells[j] = headers[j] + "=" + cell
				} else {
					cells[j] = cell
				}
			}
			b.WriteString(strings.Join(cells, "; ") + "\n")
		}

		// Row numbers are 1-based and count the header line.
		o.Sections = append(o.Sections, &doctree.Section{
			Title: fmt.Sprintf("Rows %d-%d", start+2, end+1),
			Text:  strings.TrimSpace(b.String()),
		})
	}
	return o, nil
}
