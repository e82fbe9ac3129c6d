package blocksource

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// CSVSource handles CSV files. The whole file becomes one table; the
// digest stage decides between a chart and a reduced table.
type CSVSource struct{}

func (s *CSVSource) Blocks(r io.Reader, filename string) ([]block.ContentBlock, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var e emitter
	id := e.nextTableID()
	for row, record := range records {
		for col, cell := range record {
			e.cell(id, row, col, cell)
		}
	}
	e.caption(TitleFromFilename(filename))
	return e.blocks, nil
}
