// Package cube is a harness around executable rule cells in
// multidimensional decision tables.
//
// A cell in a decision table may hold a snippet of rule source rather than
// a plain value. When a lookup resolves to such a cell, the snippet must be
// turned into an invokable unit that can read the lookup coordinate, write
// result values, reference the owning table, and see the chain of nested
// table calls that led to it. This package provides that harness; it does
// not implement the lookup algorithm itself, nor the rule language.
//
// Typical use is as follows:
//
//  1. Create an Engine with a Loader (the cel subpackage provides one
//     backed by CEL)
//  2. When a lookup resolves to a rule cell, build a Context with the
//     matched coordinate and the owning table
//  3. Call Engine.Execute with the cell and the context
//  4. Read the returned value, and any values the rule body wrote to the
//     context's output map
//
// Compilation is cached per (table name, table version, body fingerprint):
// semantically identical expressions are compiled once and shared by all
// concurrent evaluations. When a table is redefined, call
// Engine.InvalidateTable to evict the units of the retired version.
//
// Cells whose content is a URL reference are fetched before compilation;
// fetch failures abort the evaluation with a stable, matchable error
// message.
//
// Contexts are created per invocation and never reused. Nested table calls
// observe a child context sharing the parent's output map and an extended
// copy of the invocation stack; the parent's stack is never mutated.
package cube
