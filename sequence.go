package cube

import "sync/atomic"

// Sequence issues process-wide unique numbers for generated unit names.
// The zero value is ready to use. Numbers are monotonic for the life of
// the process and are not persisted across restarts.
//
// A Sequence is injected into the Compiler rather than kept as an implicit
// global, so compilers can be tested in isolation.
type Sequence struct {
	n uint64
}

// Next returns the next number in the sequence. Safe for concurrent use.
func (s *Sequence) Next() uint64 {
	return atomic.AddUint64(&s.n, 1)
}
