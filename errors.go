package cube

import "fmt"

// FetchError reports a failed retrieval of URL cell content: a transport
// failure, a non-2xx status, or an over-size response. It is fatal for the
// current evaluation and is never retried at this layer.
//
// The message format is stable; callers and tooling match on it.
type FetchError struct {
	URL     string
	Table   string
	Version string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to load binary content from URL: %s, Table '%s'", e.URL, e.Table)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CompilationError reports that the loader rejected a synthesized unit.
// The failure is deterministic: retrying with the same source fails
// identically. The original rule source and owning-table identity are
// attached for diagnostics.
type CompilationError struct {
	Table   string
	Version string
	Src     string
	Err     error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compiling cell for table %s (version %s): %v", e.Table, e.Version, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }
