package cel

import (
	"fmt"

	"github.com/ezachrisen/cube"

	celgo "github.com/google/cel-go/cel"
)

// unit wraps a compiled CEL program as an invokable cube.Unit. Units are
// shared by concurrent evaluations; a cel-go Program is safe for
// concurrent Eval calls.
type unit struct {
	name    string
	program celgo.Program
}

func (u *unit) Name() string { return u.name }

func (u *unit) Bind(ctx *cube.Context) cube.Invocation {
	return &invocation{unit: u, ctx: ctx}
}

// invocation is one execution of a unit against one context.
type invocation struct {
	unit *unit
	ctx  *cube.Context
}

// Run evaluates the program with an activation built from the context and
// returns the produced value as a native Go value.
func (inv *invocation) Run() (interface{}, error) {
	v, _, err := inv.unit.program.Eval(activation(inv.ctx))
	if err != nil {
		return nil, fmt.Errorf("evaluating unit %s: %w", inv.unit.name, err)
	}
	return v.Value(), nil
}

// activation maps the context into the variables the program was checked
// against. Coordinate values are also bound by their own names so that
// declared variables resolve; the contract names win on collision.
func activation(c *cube.Context) map[string]interface{} {
	data := make(map[string]interface{}, len(c.Input)+4)
	for k, v := range c.Input {
		data[k] = v
	}
	data["input"] = c.Input
	data["output"] = c.Output
	data["stack"] = stackFrames(c.Stack)
	name := ""
	if c.Table != nil {
		name = c.Table.Name()
	}
	data["table"] = name
	return data
}

func stackFrames(s *cube.Stack) []interface{} {
	frames := s.Frames()
	out := make([]interface{}, 0, len(frames))
	for _, f := range frames {
		out = append(out, map[string]interface{}{
			"table":      f.Table,
			"coordinate": f.Coordinate,
		})
	}
	return out
}
