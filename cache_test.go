package cube_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ezachrisen/cube"
	"github.com/matryer/is"
)

func TestCacheSingleCompilation(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	rs := cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}}

	var compiles int32
	unit := &mockUnit{name: "u1"}
	compile := func(cube.RuleSource) (cube.Unit, error) {
		atomic.AddInt32(&compiles, 1)
		return unit, nil
	}

	const n = 50
	results := make([]cube.Unit, n)
	errs := make([]error, n)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = cache.GetOrCompile(rs, compile)
		}(i)
	}
	close(start)
	wg.Wait()

	is.Equal(atomic.LoadInt32(&compiles), int32(1))
	for i := 0; i < n; i++ {
		is.NoErr(errs[i])
		is.True(results[i] == cube.Unit(unit)) // every caller sees the same artifact
	}
	is.Equal(cache.Len(), 1)
}

func TestCacheKeyScoping(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	loader := &mockLoader{}
	compiler := cube.NewCompiler(loader, nil)

	// Identical body text, different owning tables.
	u1, err := cache.GetOrCompile(
		cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}},
		compiler.Compile)
	is.NoErr(err)

	u2, err := cache.GetOrCompile(
		cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "bar", Version: "1.0.0"}},
		compiler.Compile)
	is.NoErr(err)

	is.Equal(cache.Len(), 2)
	is.True(u1.Name() != u2.Name())
}

func TestCacheVersionScoping(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	loader := &mockLoader{}
	compiler := cube.NewCompiler(loader, nil)

	_, err := cache.GetOrCompile(
		cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}},
		compiler.Compile)
	is.NoErr(err)

	_, err = cache.GetOrCompile(
		cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "2.0.0"}},
		compiler.Compile)
	is.NoErr(err)

	is.Equal(cache.Len(), 2)
	is.Equal(loader.loadCount(), 2)
}

func TestCacheHit(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	loader := &mockLoader{}
	compiler := cube.NewCompiler(loader, nil)
	rs := cube.RuleSource{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}}

	u1, err := cache.GetOrCompile(rs, compiler.Compile)
	is.NoErr(err)
	u2, err := cache.GetOrCompile(rs, compiler.Compile)
	is.NoErr(err)

	is.Equal(loader.loadCount(), 1)
	is.Equal(u1.Name(), u2.Name())
}

func TestCacheNoNegativeEntries(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	loader := &mockLoader{}
	compiler := cube.NewCompiler(loader, nil)
	rs := cube.RuleSource{Src: "no good", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}}

	loader.setFail(errors.New("syntax error"))
	_, err := cache.GetOrCompile(rs, compiler.Compile)
	is.True(err != nil)
	is.Equal(cache.Len(), 0) // a failure is not retained

	loader.setFail(nil)
	u, err := cache.GetOrCompile(rs, compiler.Compile)
	is.NoErr(err)
	is.True(u != nil)
	is.Equal(loader.loadCount(), 2)
	is.Equal(cache.Len(), 1)
}

func TestCacheFailureFanout(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	rs := cube.RuleSource{Src: "no good", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}}

	boom := errors.New("boom")
	compile := func(cube.RuleSource) (cube.Unit, error) {
		return nil, boom
	}

	const n = 20
	errs := make([]error, n)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = cache.GetOrCompile(rs, compile)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		is.True(errors.Is(errs[i], boom))
	}
	is.Equal(cache.Len(), 0)
}

func TestCacheInvalidate(t *testing.T) {
	is := is.New(t)

	cache := cube.NewCache()
	loader := &mockLoader{}
	compiler := cube.NewCompiler(loader, nil)

	sources := []cube.RuleSource{
		{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}},
		{Src: "return 2", Table: cube.TableRef{Name: "foo", Version: "1.0.0"}},
		{Src: "return 1", Table: cube.TableRef{Name: "foo", Version: "2.0.0"}},
		{Src: "return 1", Table: cube.TableRef{Name: "bar", Version: "1.0.0"}},
	}
	for _, rs := range sources {
		_, err := cache.GetOrCompile(rs, compiler.Compile)
		is.NoErr(err)
	}
	is.Equal(cache.Len(), 4)

	// Retiring foo 1.0.0 evicts its units as a group, nothing else.
	n := cache.Invalidate("foo", "1.0.0")
	is.Equal(n, 2)
	is.Equal(cache.Len(), 2)

	// The next request for an evicted key compiles from scratch.
	_, err := cache.GetOrCompile(sources[0], compiler.Compile)
	is.NoErr(err)
	is.Equal(loader.loadCount(), 5)
}
