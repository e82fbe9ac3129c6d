package budget

import "sync/atomic"

// Reserve is the shared pool parallel compressions borrow from when a unit
// needs an expanded retry budget. It is the only contended state in the
// pipeline; a claim is a single CAS so callers either get the full amount
// or fall back to truncation.
type Reserve struct {
	remaining atomic.Int64
}

// NewReserve returns a pool holding n characters.
func NewReserve(n int) *Reserve {
	r := &Reserve{}
	if n > 0 {
		r.remaining.Store(int64(n))
	}
	return r
}

// Claim atomically takes n characters from the pool. It returns false and
// takes nothing if the pool holds less than n.
func (r *Reserve) Claim(n int) bool {
	if n <= 0 {
		return true
	}
	for {
		cur := r.remaining.Load()
		if cur < int64(n) {
			return false
		}
		if r.remaining.CompareAndSwap(cur, cur-int64(n)) {
			return true
		}
	}
}

// Remaining returns the characters left in the pool.
func (r *Reserve) Remaining() int {
	return int(r.remaining.Load())
}
