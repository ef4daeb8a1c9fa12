// Package sweep synthesizes the per-scale-factor simulation variants from a
// base case: scale-factor table parsing, base-folder layout verification and
// the variant synthesizer itself.
package sweep

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fluidpower-lab/pistonsweep/internal/events"
)

// ReadScaleFactors loads the ordered scale-factor list from a tabular file.
// The first row is a header and is skipped. The first column of each
// following row is the scale factor; rows whose first column does not parse
// as a number, and rows that are not valid CSV at all, are skipped with a
// warning. Order and duplicates are kept.
func ReadScaleFactors(path string, sink events.Sink) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("scale-factor table not found: %s", path)
		}
		return nil, fmt.Errorf("open scale-factor table %s: %w", path, err)
	}
	defer f.Close()

	scales, err := ParseScaleFactors(f, sink)
	if err != nil {
		return nil, fmt.Errorf("parse scale-factor table %s: %w", path, err)
	}
	return scales, nil
}

// ParseScaleFactors parses the table from a reader.
func ParseScaleFactors(r io.Reader, sink events.Sink) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var scales []float64
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Same skip rule as non-numeric rows: only the offending row
			// is dropped.
			row++
			sink.Emit(events.Event{
				Stage:   events.StageExtract,
				Level:   events.LevelWarn,
				Item:    fmt.Sprintf("row %d", row),
				Message: fmt.Sprintf("skipping malformed row: %v", parseErr.Err),
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		row++
		if row == 1 {
			// Header row.
			continue
		}
		if len(record) == 0 {
			continue
		}
		raw := strings.TrimSpace(record[0])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			sink.Emit(events.Event{
				Stage:   events.StageExtract,
				Level:   events.LevelWarn,
				Item:    fmt.Sprintf("row %d", row),
				Message: fmt.Sprintf("skipping non-numeric scale factor %q", raw),
			})
			continue
		}
		scales = append(scales, v)
	}
	return scales, nil
}
