// Package util contains internal helpers (hashing, parallelism, padding).
//
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"hash/maphash"
)

// seed is shared by every maphash fallback so that equal values hash equally
// across maps within one process.
var seed = maphash.MakeSeed()

// Hash64 hashes a comparable value.
// Strings and integer widths take an allocation-free 64-bit FNV-1a path;
// every other comparable type (pointers, structs, arrays) goes through
// maphash.Comparable, which hashes by identity for pointers.
func Hash64[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return fnv64aFromString(v)
	case uint8:
		return fnv64aFromUint64(uint64(v))
	case uint16:
		return fnv64aFromUint64(uint64(v))
	case uint32:
		return fnv64aFromUint64(uint64(v))
	case uint64:
		return fnv64aFromUint64(v)
	case uint:
		return fnv64aFromUint64(uint64(v))
	case uintptr:
		return fnv64aFromUint64(uint64(v))
	case int8:
		return fnv64aFromUint64(uint64(uint8(v)))
	case int16:
		return fnv64aFromUint64(uint64(uint16(v)))
	case int32:
		return fnv64aFromUint64(uint64(uint32(v)))
	case int64:
		return fnv64aFromUint64(uint64(v))
	case int:
		return fnv64aFromUint64(uint64(v))
	default:
		return maphash.Comparable(seed, k)
	}
}

// Shard32 folds Hash64 into the uint32 expected by concurrent-map's
// custom sharding function.
func Shard32[K comparable](k K) uint32 {
	h := Hash64(k)
	return uint32(h ^ (h >> 32))
}

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

func fnv64aFromString(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

func fnv64aFromUint64(u uint64) uint64 {
	// Hash the 8 little-endian bytes of u without allocating.
	h := uint64(fnvOffset64)
	for i := 0; i < 8; i++ {
		h ^= uint64(byte(u))
		h *= fnvPrime64
		u >>= 8
	}
	return h
}
