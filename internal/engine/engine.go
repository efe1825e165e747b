package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tagstorm/internal/project"
	"github.com/roach88/tagstorm/internal/search"
	"github.com/roach88/tagstorm/internal/searchsql"
	"github.com/roach88/tagstorm/internal/store"
	"github.com/roach88/tagstorm/internal/tags"
)

// Querier runs compiled statements. Implemented by *store.Store and
// *store.PostgresStore.
type Querier interface {
	Dialect() searchsql.Dialect
	Query(ctx context.Context, query string, args ...any) (store.Rows, error)
}

// Engine compiles, runs and projects searches against one store.
type Engine struct {
	querier  Querier
	compiler *searchsql.Compiler
	mappings *tags.Mappings
	ids      IDGenerator
	logger   *slog.Logger
	maxLimit int64 // 0 means unlimited
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMappings sets the tag mappings snapshot. Default: empty mappings.
func WithMappings(m *tags.Mappings) Option {
	return func(e *Engine) {
		e.mappings = m
	}
}

// WithIDGenerator sets the query id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMaxLimit caps the number of rows a non-aggregate search may return.
// Requests without a limit, or with a larger one, get n instead.
// Zero disables the cap.
func WithMaxLimit(n int64) Option {
	return func(e *Engine) {
		e.maxLimit = n
	}
}

// New creates an Engine for q. The compiler dialect follows q.Dialect().
func New(q Querier, opts ...Option) *Engine {
	e := &Engine{
		querier:  q,
		compiler: searchsql.NewCompiler(q.Dialect()),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.mappings == nil {
		e.mappings = tags.MustResolve(nil, nil, nil, nil)
	}
	return e
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mappings returns the tag mappings snapshot.
func (e *Engine) Mappings() *tags.Mappings {
	return e.mappings
}

// Lookup describes names against the engine's tag mappings.
func (e *Engine) Lookup(names []string) tags.LookupResult {
	return e.mappings.Lookup(names)
}

// Dialect returns the dialect searches compile to.
func (e *Engine) Dialect() searchsql.Dialect {
	return e.compiler.Dialect()
}

// Result is the outcome of one search.
type Result struct {
	QueryID string
	Columns []search.Column
	Records []project.Record
}

// SingleColumn returns the selected column when the select list names
// only one distinct column. A column selected twice still counts once.
func (r *Result) SingleColumn() (search.Column, bool) {
	if len(r.Columns) == 0 {
		return 0, false
	}
	for _, c := range r.Columns[1:] {
		if c != r.Columns[0] {
			return 0, false
		}
	}
	return r.Columns[0], true
}

// Flatten reshapes a single-column result into {column: [values]}.
func (r *Result) Flatten() (map[string][]any, error) {
	col, ok := r.SingleColumn()
	if !ok {
		return nil, fmt.Errorf("flatten: result has %d columns, want 1", len(r.Columns))
	}
	return project.Flatten(col, r.Records)
}

// Compile applies the engine's limit cap and compiles req.
func (e *Engine) Compile(req search.Request) (searchsql.Compiled, error) {
	return e.compiler.Compile(e.capLimit(req))
}

func (e *Engine) capLimit(req search.Request) search.Request {
	if e.maxLimit <= 0 || req.IsAggregate() {
		return req
	}
	if req.Limit == nil || *req.Limit > e.maxLimit {
		limit := e.maxLimit
		req.Limit = &limit
	}
	return req
}

// Search runs req and returns one record per matched row.
//
// Compile failures are returned as *search.CompileError and never reach
// the store. Store and projection failures are returned as *RuntimeError.
func (e *Engine) Search(ctx context.Context, req search.Request) (*Result, error) {
	queryID := e.ids.Generate()
	log := e.logger.With("query_id", queryID)

	compiled, err := e.Compile(req)
	if err != nil {
		log.Debug("search rejected", "code", search.CodeOf(err), "error", err)
		return nil, err
	}

	args, err := compiled.Args()
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeQueryFailed, QueryID: queryID, Err: err}
	}

	// Bound values are not logged.
	log.Debug("search compiled",
		"dialect", e.Dialect().String(),
		"sql", compiled.SQL,
		"params", len(args),
	)

	rows, err := e.querier.Query(ctx, compiled.SQL, args...)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeQueryFailed, QueryID: queryID, Err: err}
	}
	defer rows.Close()

	records := []project.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeQueryFailed, QueryID: queryID, Err: err}
		}

		rec, err := project.Project(values, compiled.Columns)
		if err != nil {
			log.Error("search projection failed", "error", err)
			return nil, &RuntimeError{Code: ErrCodeProjectionFailed, QueryID: queryID, Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &RuntimeError{Code: ErrCodeQueryFailed, QueryID: queryID, Err: err}
	}

	log.Info("search complete", "rows", len(records))

	return &Result{
		QueryID: queryID,
		Columns: compiled.Columns,
		Records: records,
	}, nil
}
