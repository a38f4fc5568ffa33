package cube

import (
	"strconv"
	"strings"
)

// declPrefix marks a declaration line in rule source. Declarations are
// hoisted out of the body and emitted at the top of the synthesized unit.
const declPrefix = "import "

// Compiler synthesizes an executable unit from raw rule source: it
// separates declaration lines from the body, wraps the body in the fixed
// run contract under a generated unit name, and hands the result to a
// Loader.
//
// The Compiler does no caching; see Cache.
type Compiler struct {
	loader Loader
	seq    *Sequence
}

// NewCompiler creates a compiler backed by the loader. The sequence
// supplies the numeric suffix of generated unit names; pass nil to use a
// fresh one.
func NewCompiler(loader Loader, seq *Sequence) *Compiler {
	if seq == nil {
		seq = &Sequence{}
	}
	return &Compiler{loader: loader, seq: seq}
}

// Compile synthesizes and loads the unit for the rule source. Every call
// produces a unit with a fresh generated name, even for identical source;
// reuse is the Cache's responsibility.
//
// A load failure is returned as a *CompilationError carrying the original
// rule source and owning-table identity.
func (c *Compiler) Compile(rs RuleSource) (Unit, error) {
	decls, body := splitDeclarations(rs.Src)

	syn := Synthesis{
		UnitName:     c.unitName(rs.Table),
		Declarations: decls,
		Body:         body,
		Table:        rs.Table,
	}
	syn.Source = buildSource(syn)

	u, err := c.loader.Load(syn)
	if err != nil {
		return nil, &CompilationError{
			Table:   rs.Table.Name,
			Version: rs.Table.Version,
			Src:     rs.Src,
			Err:     err,
		}
	}
	return u, nil
}

// unitName combines a sanitized form of the owning table's name with a
// process-wide unique number. Scoping the name to the table keeps
// identical cell bodies in different tables from colliding.
func (c *Compiler) unitName(t TableRef) string {
	return "CellFn" + sanitizeName(t.Name) + strconv.FormatUint(c.seq.Next(), 10)
}

// sanitizeName drops every rune that is not legal in an identifier.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitDeclarations scans the rule source line by line, collecting
// declaration lines in first-seen order with exact duplicates removed.
// All other lines form the body, verbatim and in their original order.
func splitDeclarations(src string) ([]string, string) {
	var decls []string
	seen := map[string]bool{}
	var body []string

	for _, line := range strings.Split(src, "\n") {
		d := strings.TrimSpace(line)
		if strings.HasPrefix(d, declPrefix) {
			if !seen[d] {
				seen[d] = true
				decls = append(decls, d)
			}
			continue
		}
		body = append(body, line)
	}
	return decls, strings.Join(body, "\n")
}

// buildSource emits the unit text: the declarations one per line, a unit
// header implementing the fixed contract (a single-argument constructor
// receiving the context bag and a no-argument entry method), and the body
// verbatim inside the entry method.
func buildSource(syn Synthesis) string {
	var b strings.Builder
	for _, d := range syn.Declarations {
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("unit ")
	b.WriteString(syn.UnitName)
	b.WriteString(" : cell\n{\n")
	b.WriteString(syn.UnitName)
	b.WriteString("(ctx)\n{\n}\n\n")
	b.WriteString("run()\n{\n")
	b.WriteString(syn.Body)
	b.WriteString("\n}\n}")
	return b.String()
}
