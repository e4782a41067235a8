package util

import "runtime"

// Parallelism picks a practical fan-out width for bulk work such as disposing
// every pool item. Heuristic: nextPow2(GOMAXPROCS), clamped to [1..64].
func Parallelism() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p)))
	if n > 64 {
		n = 64
	}
	return n
}
