package cube

import (
	"context"
)

// Engine ties the harness together: it resolves a cell's content (fetching
// it when the cell is a URL reference), obtains the compiled unit through
// the cache, and invokes it against an execution context.
//
// The lookup algorithm that selects which cell executes is not the
// engine's concern; the caller hands it the already-resolved cell.
type Engine struct {
	fetcher  *Fetcher
	compiler *Compiler
	cache    *Cache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFetcher replaces the engine's content fetcher.
func WithFetcher(f *Fetcher) EngineOption {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// WithSequence supplies the unique-id sequence used for generated unit
// names. Engines sharing a process should share a sequence.
func WithSequence(s *Sequence) EngineOption {
	return func(e *Engine) {
		e.compiler = NewCompiler(e.compiler.loader, s)
	}
}

// NewEngine creates an engine whose units are compiled by the loader.
func NewEngine(loader Loader, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:  NewFetcher(),
		compiler: NewCompiler(loader, nil),
		cache:    NewCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the cell of the table against the execution context and
// returns the cell's result. Values the rule body wrote to the context's
// output map are available on ec.Output afterward.
//
// Content is fetched before the cache is consulted, so a slow fetch never
// blocks unrelated cache lookups.
func (e *Engine) Execute(ctx context.Context, cell Cell, t Table, ec *Context) (interface{}, error) {
	src := cell.Content
	if cell.URL {
		b, err := e.fetcher.Fetch(ctx, cell.Content, t)
		if err != nil {
			return nil, err
		}
		src = string(b)
	}

	rs := RuleSource{Src: src, CellID: cell.CellID, Table: Ref(t)}
	u, err := e.cache.GetOrCompile(rs, e.compiler.Compile)
	if err != nil {
		return nil, err
	}
	return u.Bind(ec).Run()
}

// ExecuteNested runs a cell of table t as a nested call under the parent
// context: the nested unit observes a child context with its own frame
// pushed on the stack, while the parent's stack is unaffected. Failures
// propagate unchanged through the enclosing frames.
func (e *Engine) ExecuteNested(ctx context.Context, cell Cell, t Table, parent *Context, coordinate map[string]interface{}) (interface{}, error) {
	return e.Execute(ctx, cell, t, parent.Child(t, coordinate))
}

// FetchContent retrieves the raw bytes of a binary cell's URL reference.
// The content is returned verbatim; nothing is compiled or cached.
func (e *Engine) FetchContent(ctx context.Context, url string, t Table) ([]byte, error) {
	return e.fetcher.Fetch(ctx, url, t)
}

// InvalidateTable evicts every compiled unit belonging to the table
// version, returning the number of units evicted. Call it when a table is
// redefined or retired.
func (e *Engine) InvalidateTable(name, version string) int {
	return e.cache.Invalidate(name, version)
}

// CachedUnits is the number of compiled units currently cached.
func (e *Engine) CachedUnits() int {
	return e.cache.Len()
}
