// Package report renders a sequence of per-frame encode observations to
// CSV, for the codec's concrete-scenario sweeps.
package report

import (
	"encoding/csv"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/hashicorp/go-multierror"
)

// Row is one frame's worth of encode observations in a scenario run.
type Row struct {
	Scenario     string `csv:"scenario"`
	Frame        int    `csv:"frame"`
	Tag          string `csv:"tag"`
	BytesWritten int    `csv:"bytes_written"`
	KeyFrame     bool   `csv:"key_frame"`
	PaletteSize  int    `csv:"palette_size"`
}

// Sink accumulates Rows across possibly many scenarios and can flush them
// as CSV. It aggregates Add errors with multierror rather than failing on
// the first bad row, matching settings.go's Validate.
type Sink struct {
	rows []Row
	err  *multierror.Error
}

// NewSink returns an empty Sink ready to accept rows.
func NewSink() *Sink {
	return &Sink{}
}

// Add appends row to the sink. It never itself fails; the error parameter
// exists so callers can thread scenario-level failures (e.g. an Encode
// error for the frame the row describes) into the same aggregate Err()
// without a separate bookkeeping path.
func (s *Sink) Add(row Row, scenarioErr error) {
	s.rows = append(s.rows, row)
	if scenarioErr != nil {
		s.err = multierror.Append(s.err, scenarioErr)
	}
}

// Err returns every scenario-level error recorded via Add, aggregated,
// or nil if none occurred.
func (s *Sink) Err() error {
	return s.err.ErrorOrNil()
}

// WriteCSV marshals every accumulated row to w as CSV with a header row.
func (s *Sink) WriteCSV(w io.Writer) error {
	return gocsv.MarshalCSV(&s.rows, gocsv.NewSafeCSVWriter(csv.NewWriter(w)))
}
