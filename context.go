package cube

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ezachrisen/cube/convert"
)

// Frame is one entry in the invocation stack: the table that was invoked
// and the coordinate it was invoked with.
type Frame struct {
	Table      string
	Coordinate map[string]interface{}
}

// Stack is the chain of nested table invocations active in the current
// evaluation, most recent frame first.
//
// A Stack is immutable. Push allocates a new head that shares the tail, so
// a nested invocation observes its own frame on top of the caller's frames
// while the caller's stack is unaffected. No locking is needed.
type Stack struct {
	frame Frame
	next  *Stack
}

// Push returns a new stack with f on top. Push on a nil stack is valid and
// returns a single-frame stack.
func (s *Stack) Push(f Frame) *Stack {
	return &Stack{frame: f, next: s}
}

// Frames returns the frames, most recent first.
func (s *Stack) Frames() []Frame {
	var frames []Frame
	for e := s; e != nil; e = e.next {
		frames = append(frames, e.frame)
	}
	return frames
}

// Depth is the number of frames in the stack.
func (s *Stack) Depth() int {
	n := 0
	for e := s; e != nil; e = e.next {
		n++
	}
	return n
}

// String produces a list of the stack frames, most recent first.
func (s *Stack) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nINVOCATION STACK\n")
	tw.AppendHeader(table.Row{"Depth", "Table", "Coordinate"})
	for i, f := range s.Frames() {
		tw.AppendRow(table.Row{i, f.Table, fmt.Sprintf("%v", f.Coordinate)})
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

// Context is the bag of values passed to a compiled unit at invocation
// time. It defines everything a rule body may observe and mutate.
//
// A Context is created per invocation and never reused, so it requires no
// locking. The Output map is shared with child contexts: writes made by
// nested invocations are visible to the top-level caller after the full
// evaluation completes.
type Context struct {
	// Input is the lookup coordinate that selected the executing cell.
	// Rule bodies treat it as read-only.
	Input map[string]interface{}

	// Output is a second channel of results, writable by the rule body.
	Output map[string]interface{}

	// Table is the owning table, available for nested lookups.
	Table Table

	// Stack is the invocation stack, with the current frame first.
	Stack *Stack
}

// NewContext creates the context for a top-level invocation of a cell in
// table t, matched by the given coordinate.
func NewContext(input map[string]interface{}, t Table) *Context {
	c := &Context{
		Input:  input,
		Output: map[string]interface{}{},
		Table:  t,
	}
	name := ""
	if t != nil {
		name = t.Name()
	}
	c.Stack = (*Stack)(nil).Push(Frame{Table: name, Coordinate: input})
	return c
}

// Child returns the context a nested invocation of table t observes: the
// nested coordinate as input, the parent's output map, and the parent's
// stack with a new frame on top. The parent context is unaffected.
func (c *Context) Child(t Table, coordinate map[string]interface{}) *Context {
	name := ""
	if t != nil {
		name = t.Name()
	}
	return &Context{
		Input:  coordinate,
		Output: c.Output,
		Table:  t,
		Stack:  c.Stack.Push(Frame{Table: name, Coordinate: coordinate}),
	}
}

// InputAs reads the named coordinate value coerced to the requested kind.
func (c *Context) InputAs(name string, k convert.Kind) (interface{}, error) {
	return convert.Convert(c.Input[name], k)
}

// OutputAs reads the named output value coerced to the requested kind.
func (c *Context) OutputAs(name string, k convert.Kind) (interface{}, error) {
	return convert.Convert(c.Output[name], k)
}
