package merge

import (
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/formulon/internal/legend"
)

// QueryBlock is the result of one query block. Columns names the legend
// item of every row value, in row order.
type QueryBlock struct {
	Meta    BlockMeta
	Columns []int
	Rows    iter.Seq[[]any]
}

// Merger concatenates blocks onto one legend.
type Merger struct {
	legend *legend.Legend
}

func NewMerger(l *legend.Legend) *Merger {
	return &Merger{legend: l}
}

// Merge returns the rows of every block in block order, each mapped from
// block columns to legend data columns. Rows of different blocks are never
// interleaved. Blocks are read lazily when the stream is iterated.
func (m *Merger) Merge(meta MergedQueryMetaInfo, blocks ...QueryBlock) (*MergedQueryDataStream, error) {
	width := len(m.legend.DataIDs())
	mappings := make([][]int, len(blocks))
	ids := make([][]int, len(blocks))
	for b, blk := range blocks {
		mapping := make([]int, len(blk.Columns))
		seen := make(map[int]bool, len(blk.Columns))
		for i, id := range blk.Columns {
			it, ok := m.legend.Item(id)
			switch {
			case !ok:
				return nil, fmt.Errorf("block %d: unknown legend item %d", blk.Meta.BlockID, id)
			case !it.HasData():
				return nil, fmt.Errorf("block %d: legend item %d has no data column", blk.Meta.BlockID, id)
			case seen[id]:
				return nil, fmt.Errorf("block %d: legend item %d selected twice", blk.Meta.BlockID, id)
			}
			seen[id] = true
			mapping[i] = m.legend.DataIndex(id)
		}
		mappings[b] = mapping
		ids[b] = presentIDs(m.legend, seen)
	}

	first := len(meta.Blocks)
	meta.Blocks = append(meta.Blocks, blockMetas(blocks)...)
	counts := meta.Blocks[first:]
	meta.TargetConnectionIDs = connectionIDs(meta.TargetConnectionIDs, blocks)

	rows := func(yield func(MergedQueryDataRow) bool) {
		for b, blk := range blocks {
			for values := range blk.Rows {
				data := make([]any, width)
				for i, v := range values {
					if i < len(mappings[b]) {
						data[mappings[b][i]] = v
					}
				}
				counts[b].Rows++
				if !yield(MergedQueryDataRow{Data: data, LegendItemIDs: ids[b]}) {
					return
				}
			}
		}
	}
	return NewStream(m.legend, rows, meta), nil
}

// presentIDs lists the ids in seen in legend order.
func presentIDs(l *legend.Legend, seen map[int]bool) []int {
	var out []int
	for _, id := range l.DataIDs() {
		if seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func blockMetas(blocks []QueryBlock) []BlockMeta {
	out := make([]BlockMeta, len(blocks))
	for i, b := range blocks {
		out[i] = b.Meta
	}
	return out
}

func connectionIDs(known []string, blocks []QueryBlock) []string {
	out := slices.Clone(known)
	for _, b := range blocks {
		if b.Meta.ConnectionID != "" {
			out = append(out, b.Meta.ConnectionID)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
