package cube

// Table is the decision table that owns the cell being compiled or
// executed. The lookup engine implements it; this layer needs the identity
// only, and rule bodies may hold a Table to issue nested lookups.
type Table interface {
	Name() string
	Version() string
}

// TableRef is a value copy of a table's identity, used in cache keys,
// generated unit names and error diagnostics.
type TableRef struct {
	Name    string
	Version string
}

// Ref captures the identity of t.
func Ref(t Table) TableRef {
	return TableRef{Name: t.Name(), Version: t.Version()}
}

// RuleSource is the raw text of a rule cell together with the identity of
// the owning table and the cell it was read from. It is a value and is
// never modified after creation.
type RuleSource struct {
	// Src is the rule body as stored in the cell (or fetched from its URL).
	Src string

	// CellID is a logical identifier for the cell, for diagnostics.
	CellID string

	// Table is the identity of the owning table.
	Table TableRef
}

// Cell is a cell content reference: either inline rule source, or a URL
// the source must be fetched from before compilation.
type Cell struct {
	// CellID is a logical identifier for the cell.
	CellID string

	// Content is the rule source when URL is false, otherwise the URL to
	// fetch it from.
	Content string

	// URL indicates that Content is a URL reference.
	URL bool
}
