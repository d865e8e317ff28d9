package engine

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/formulon/internal/compiler"
	"github.com/roach88/formulon/internal/legend"
	"github.com/roach88/formulon/internal/merge"
	"github.com/roach88/formulon/internal/store"
	"github.com/roach88/formulon/internal/translate"
)

// Executor runs plans against one store.
type Executor struct {
	store   *store.Store
	reg     *translate.Registry
	ids     RequestIDGenerator
	logger  *slog.Logger
	stats   *translate.StatsCollector
	maxRows int
	seq     atomic.Int64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithRequestIDs replaces the UUIDv7 request id generator.
func WithRequestIDs(gen RequestIDGenerator) ExecutorOption {
	return func(e *Executor) {
		e.ids = gen
	}
}

// WithStatsCollector reports the translation statistics of every executed
// plan to c.
func WithStatsCollector(c *translate.StatsCollector) ExecutorOption {
	return func(e *Executor) {
		e.stats = c
	}
}

// WithMaxRows sets the row quota of one execution.
//
// Default: 1,000,000 rows (DefaultMaxRows). Zero disables the quota.
func WithMaxRows(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxRows = n
	}
}

// NewExecutor creates an executor over s. reg must hold the translations
// of the store's connector.
func NewExecutor(s *store.Store, reg *translate.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:   s,
		reg:     reg,
		ids:     UUIDv7Generator{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prepare plans q for the store's dialect.
func (e *Executor) Prepare(ds *compiler.Dataset, q *compiler.Query) (*Plan, error) {
	return Prepare(e.reg, e.store.Dialect(), ds, q)
}

// Result is one execution. Stream is post-paginated and single-pass;
// block statements run while it is read.
type Result struct {
	RequestID string
	Seq       int64
	Plan      *Plan
	Stream    *merge.MergedQueryDataStream

	err error
}

// Err returns the first error met while reading the stream: a failed
// block statement, a scan error, an exceeded row quota or a second
// iteration.
func (r *Result) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.Stream.Err()
}

// Pivot arranges the stream as the query's pivot table, or as
// legend.DefaultPivot when the query has none. It consumes the stream.
func (r *Result) Pivot() (*legend.PivotTable, error) {
	spec := legend.DefaultPivot(r.Stream.Legend)
	if r.Plan.Query.Pivot != nil {
		spec = *r.Plan.Query.Pivot
	}
	p, err := legend.NewPivotLegend(r.Stream.Legend, spec)
	if err != nil {
		return nil, err
	}
	t, err := legend.BuildPivotTable(r.Stream.PivotRows(), p)
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Execute runs plan. The returned stream is lazy: no statement is sent
// before it is iterated, and blocks run one after another.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	if plan.Target != e.store.Dialect() {
		return nil, &RuntimeError{
			Code:    ErrCodeDialectMismatch,
			Message: "plan targets " + plan.Target.String() + ", store is " + e.store.Dialect().String(),
		}
	}

	res := &Result{RequestID: e.ids.Generate(), Seq: e.seq.Add(1), Plan: plan}
	log := e.logger.With("request_id", res.RequestID, "seq", res.Seq, "query", plan.Query.Name)
	log.Info("executing query", "blocks", len(plan.Blocks), "fingerprint", plan.Fingerprint)

	quota := NewRowQuota(e.maxRows)
	connection := e.store.Plugin().Family.String()
	blocks := make([]merge.QueryBlock, len(plan.Blocks))
	for i, bp := range plan.Blocks {
		blocks[i] = merge.QueryBlock{
			Meta:    merge.BlockMeta{BlockID: bp.ID, ConnectionID: connection, Query: bp.SQL, Args: bp.Args},
			Columns: bp.Columns,
			Rows:    e.blockRows(ctx, res, bp, quota, log),
		}
	}

	meta := merge.MergedQueryMetaInfo{Offset: plan.Query.Offset, Limit: plan.Query.Limit}
	merged, err := merge.NewMerger(plan.Legend).Merge(meta, blocks...)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidQuery, Message: "cannot merge blocks", RequestID: res.RequestID, Err: err}
	}
	if res.Stream, err = (merge.QueryPostPaginator{}).PostPaginate(merged); err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidQuery, Message: "cannot paginate", RequestID: res.RequestID, Err: err}
	}

	if e.stats != nil {
		e.stats.Observe(plan.Stats)
	}
	return res, nil
}

// blockRows issues bp's statement when iterated and yields its rows.
// Failures stop the sequence and are recorded on res.
func (e *Executor) blockRows(ctx context.Context, res *Result, bp BlockPlan, quota *RowQuota, log *slog.Logger) iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		if res.err != nil {
			return
		}
		log.Debug("running block", "block", bp.ID, "sql", bp.SQL)
		rows, err := e.store.Query(ctx, bp.SQL, bp.Args...)
		if err != nil {
			res.err = NewQueryError(res.RequestID, bp.ID, err)
			log.Error("block failed", "block", bp.ID, "error", err)
			return
		}

		n := 0
		defer func() {
			log.Debug("block done", "block", bp.ID, "rows", n)
		}()
		for values := range rows.All() {
			if err := quota.Check(res.RequestID); err != nil {
				res.err = err
				log.Warn("row quota exceeded", "block", bp.ID, "limit", quota.MaxRows())
				return
			}
			n++
			if !yield(values) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			res.err = NewQueryError(res.RequestID, bp.ID, err)
			log.Error("block failed", "block", bp.ID, "error", err)
		}
	}
}
