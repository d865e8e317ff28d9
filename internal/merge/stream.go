// Package merge combines per-block query results into one stream in legend
// order and applies post-pagination.
//
// Streams are single-pass: every block reads a database cursor exactly
// once. A second iteration of Rows yields nothing and Err reports
// ErrStreamConsumed.
package merge

import (
	"errors"
	"iter"

	"github.com/roach88/formulon/internal/legend"
)

// ErrStreamConsumed is recorded when Rows is iterated a second time.
var ErrStreamConsumed = errors.New("merged stream already consumed")

// MergedQueryDataRow is one output row. Data holds one value per legend
// data column; columns that no block of the row computes are nil.
type MergedQueryDataRow struct {
	Data          []any
	LegendItemIDs []int
}

// BlockMeta describes one executed query block.
type BlockMeta struct {
	BlockID      int
	ConnectionID string
	Query        string
	Args         []any

	// Rows counts the block rows read so far. Merge updates it in the
	// stream's Meta as the stream is iterated.
	Rows int
}

// MergedQueryMetaInfo carries block debug information and the requested
// page. Nil Offset or Limit means unset.
type MergedQueryMetaInfo struct {
	Blocks              []BlockMeta
	Offset              *int
	Limit               *int
	TargetConnectionIDs []string
}

// MergedQueryDataStream is a legend, its rows and their meta information.
type MergedQueryDataStream struct {
	Legend *legend.Legend
	Meta   MergedQueryMetaInfo

	rows     iter.Seq[MergedQueryDataRow]
	consumed bool
	err      error
}

// NewStream wraps rows. rows is iterated at most once.
func NewStream(l *legend.Legend, rows iter.Seq[MergedQueryDataRow], meta MergedQueryMetaInfo) *MergedQueryDataStream {
	return &MergedQueryDataStream{Legend: l, Meta: meta, rows: rows}
}

// Rows returns the row sequence. Only the first iteration yields rows.
func (s *MergedQueryDataStream) Rows() iter.Seq[MergedQueryDataRow] {
	return func(yield func(MergedQueryDataRow) bool) {
		if s.consumed {
			s.err = ErrStreamConsumed
			return
		}
		s.consumed = true
		for row := range s.rows {
			if !yield(row) {
				return
			}
		}
	}
}

// PivotRows adapts the rows for legend.BuildPivotTable.
func (s *MergedQueryDataStream) PivotRows() iter.Seq[legend.Row] {
	return func(yield func(legend.Row) bool) {
		for row := range s.Rows() {
			if !yield(legend.Row{Data: row.Data, IDs: row.LegendItemIDs}) {
				return
			}
		}
	}
}

// Collect drains the stream.
func (s *MergedQueryDataStream) Collect() []MergedQueryDataRow {
	var out []MergedQueryDataRow
	for row := range s.Rows() {
		out = append(out, row)
	}
	return out
}

// Consumed reports whether iteration has started.
func (s *MergedQueryDataStream) Consumed() bool { return s.consumed }

// Err returns ErrStreamConsumed after a second iteration.
func (s *MergedQueryDataStream) Err() error { return s.err }
