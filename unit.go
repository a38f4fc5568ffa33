package cube

// Unit is the opaque invokable artifact produced from a rule cell's source.
// A unit is compiled once, stored in the cache, and shared read-only by
// every evaluation that resolves to the same cell content; Bind creates the
// per-call invocation.
type Unit interface {
	// Name is the generated identifier of the unit. No two units that are
	// live in the same process share a name, even when compiled from
	// identical source.
	Name() string

	// Bind prepares an invocation of the unit with the per-call context.
	Bind(*Context) Invocation
}

// Invocation is a single execution of a unit against one context. Run
// returns the cell's result; values the rule body wrote to the context's
// output map are available separately after Run returns.
type Invocation interface {
	Run() (interface{}, error)
}

// Synthesis is the executable unit synthesized for one rule cell, handed
// to a Loader for compilation.
type Synthesis struct {
	// UnitName is the generated identifier, unique for the life of the
	// process and scoped to the owning table's name.
	UnitName string

	// Declarations holds the declaration lines extracted from the rule
	// source, in first-seen order with exact duplicates removed.
	Declarations []string

	// Body holds the executable lines, verbatim and in their original
	// order.
	Body string

	// Source is the full emitted unit text: declarations, unit header
	// conforming to the run contract, and the body inside the entry
	// method.
	Source string

	// Table is the identity of the owning table.
	Table TableRef
}

// Loader turns a synthesized unit into an invokable artifact.
// Implementations wrap an expression-language toolchain; see the cel
// subpackage. Load failures are deterministic: loading the same synthesis
// again fails identically.
type Loader interface {
	Load(Synthesis) (Unit, error)
}
