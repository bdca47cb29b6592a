// Package gmath has small numeric helpers shared by the GPU plumbing.
package gmath

// AlignUp rounds n up to the next multiple of alignment, which must be
// a power of two.
func AlignUp[T ~int | ~uint32 | ~uint64](n T, alignment T) T {
	return (n + alignment - 1) & -alignment
}

// CeilDiv returns n divided by d, rounded up.
func CeilDiv[T ~int | ~uint32 | ~uint64](n T, d T) T {
	return (n + d - 1) / d
}
