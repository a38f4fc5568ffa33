// Package cel provides a cube.Loader backed by Google's cel-go expression
// engine. See https://github.com/google/cel-go and
// https://opensource.google/projects/cel for more information about CEL.
// Rule bodies must conform to the CEL spec:
// https://github.com/google/cel-spec.
//
// The loader binds the run contract to CEL as follows. Four variables are
// always declared and resolve from the execution context:
//
//	input   the lookup coordinate (map)
//	output  the writable result map
//	stack   the invocation stack, current frame first (list of maps)
//	table   the owning table's name (string)
//
// Values of the coordinate are also resolvable by their own names when the
// rule declares them, one declaration line per variable:
//
//	import score float
//	import state
//	score * 1.045
//
// An omitted type declares the variable as dyn. Rule bodies write result
// values with the builtin set(output, key, value), which stores value
// under key and returns it. A leading "return" token on the body is
// accepted and ignored.
package cel

import (
	"fmt"
	"strings"

	"github.com/ezachrisen/cube"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/interpreter/functions"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Loader compiles synthesized units to CEL programs.
type Loader struct{}

// NewLoader creates a CEL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses, checks and programs the unit's body against an environment
// built from its declarations. The returned unit wraps the CEL program and
// carries the generated unit name.
func (l *Loader) Load(syn cube.Synthesis) (cube.Unit, error) {
	declarations := contractDeclarations()
	for _, line := range syn.Declarations {
		d, err := importDecl(line)
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, d)
	}

	env, err := celgo.NewEnv(celgo.Declarations(declarations...))
	if err != nil {
		return nil, fmt.Errorf("creating environment for unit %s: %w", syn.UnitName, err)
	}

	body := strings.TrimSpace(syn.Body)
	body = strings.TrimPrefix(body, "return ")

	// Parse the body to an AST
	p, iss := env.Parse(body)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("parsing unit %s: %w", syn.UnitName, iss.Err())
	}

	// Type-check the parsed AST against the declarations
	c, iss := env.Check(p)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("checking unit %s: %w", syn.UnitName, iss.Err())
	}

	// Generate an evaluable program
	prg, err := env.Program(c, celgo.Functions(setOverload()))
	if err != nil {
		return nil, fmt.Errorf("generating program for unit %s: %w", syn.UnitName, err)
	}

	return &unit{name: syn.UnitName, program: prg}, nil
}

// contractDeclarations declares the variables and builtins every unit can
// use, regardless of its own declarations.
func contractDeclarations() []*exprpb.Decl {
	anyMap := decls.NewMapType(decls.String, decls.Any)
	return []*exprpb.Decl{
		decls.NewIdent("input", anyMap, nil),
		decls.NewIdent("output", anyMap, nil),
		decls.NewIdent("stack", decls.NewListType(anyMap), nil),
		decls.NewIdent("table", decls.String, nil),
		decls.NewFunction("set",
			decls.NewOverload(setOperator,
				[]*exprpb.Type{anyMap, decls.String, decls.Any},
				decls.Any)),
	}
}

// importDecl turns a declaration line "import <name> [<type>]" into a CEL
// variable declaration.
func importDecl(line string) (*exprpb.Decl, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "import" {
		return nil, fmt.Errorf("malformed declaration %q", line)
	}
	typ := decls.Any
	if len(fields) > 2 {
		var err error
		typ, err = celType(fields[2])
		if err != nil {
			return nil, fmt.Errorf("declaration %q: %w", line, err)
		}
	}
	return decls.NewIdent(fields[1], typ, nil), nil
}

// celType maps a declared type name to a CEL type.
func celType(name string) (*exprpb.Type, error) {
	switch name {
	case "string":
		return decls.String, nil
	case "int":
		return decls.Int, nil
	case "float":
		return decls.Double, nil
	case "bool":
		return decls.Bool, nil
	case "timestamp":
		return decls.Timestamp, nil
	case "any":
		return decls.Any, nil
	default:
		return nil, fmt.Errorf("unknown type %q", name)
	}
}

const setOperator = "set_map_string_any"

// setOverload implements set(output, key, value): it stores value in the
// bound output map and returns the value, so set can terminate a body
// while still producing a result.
func setOverload() *functions.Overload {
	return &functions.Overload{
		Operator: setOperator,
		Function: func(args ...ref.Val) ref.Val {
			if len(args) != 3 {
				return types.NewErr("set requires 3 arguments, got %d", len(args))
			}
			out, ok := args[0].Value().(map[string]interface{})
			if !ok {
				return types.NewErr("set: first argument must be the output map, got %T", args[0].Value())
			}
			key, ok := args[1].Value().(string)
			if !ok {
				return types.NewErr("set: key must be a string, got %T", args[1].Value())
			}
			out[key] = args[2].Value()
			return args[2]
		},
	}
}
