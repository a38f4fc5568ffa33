package cube_test

import (
	"sync"

	"github.com/ezachrisen/cube"
)

// -------------------------------------------------- TEST TABLE

// testTable is a minimal Table implementation standing in for the lookup
// engine's table type.
type testTable struct {
	name    string
	version string
}

func (t testTable) Name() string    { return t.name }
func (t testTable) Version() string { return t.version }

// -------------------------------------------------- MOCK LOADER

// mockUnit is an invokable unit with a pluggable body.
type mockUnit struct {
	name string
	fn   func(*cube.Context) (interface{}, error)
}

func (u *mockUnit) Name() string { return u.name }

func (u *mockUnit) Bind(ctx *cube.Context) cube.Invocation {
	return &mockInvocation{unit: u, ctx: ctx}
}

type mockInvocation struct {
	unit *mockUnit
	ctx  *cube.Context
}

func (i *mockInvocation) Run() (interface{}, error) {
	if i.unit.fn == nil {
		return true, nil
	}
	return i.unit.fn(i.ctx)
}

// mockLoader is used for testing. It counts loads, captures the syntheses
// it was given, and can be made to fail.
type mockLoader struct {
	mu    sync.Mutex
	loads int
	syns  []cube.Synthesis
	fail  error
	fn    func(*cube.Context) (interface{}, error)
}

func (l *mockLoader) Load(syn cube.Synthesis) (cube.Unit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	l.syns = append(l.syns, syn)
	if l.fail != nil {
		return nil, l.fail
	}
	return &mockUnit{name: syn.UnitName, fn: l.fn}, nil
}

func (l *mockLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *mockLoader) lastSynthesis() cube.Synthesis {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.syns) == 0 {
		return cube.Synthesis{}
	}
	return l.syns[len(l.syns)-1]
}

func (l *mockLoader) setFail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}
