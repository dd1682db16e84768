// Package vktypes holds the enums, bitflag sets, format tables and hashing
// helpers shared by every other package (C1 of the render graph runtime).
package vktypes

import "hash/fnv"

// Hash is the 32-bit structural hash used to intern Types (ir package) and
// key caches (cache package). A stable 32-bit width is used rather than
// 64-bit because the IR's Type.hash_value is carried inline on every node
// result slot and is read far more often than written.
type Hash uint32

// Combine folds an arbitrary sequence of hashable fields into h, the way
// original_source/src/Cache.hpp's hash_combine folds vk::Flags, spans, and
// scalar fields into a running accumulator.
func Combine(h Hash, parts ...uint64) Hash {
	f := fnv.New32a()
	var buf [8]byte
	putU64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		_, _ = f.Write(buf[:])
	}
	putU64(uint64(h))
	for _, p := range parts {
		putU64(p)
	}
	return Hash(f.Sum32())
}

// CombineBytes folds a raw byte payload (e.g. a specialization-constant
// data blob) into h.
func CombineBytes(h Hash, b []byte) Hash {
	f := fnv.New32a()
	var buf [4]byte
	buf[0] = byte(h)
	buf[1] = byte(h >> 8)
	buf[2] = byte(h >> 16)
	buf[3] = byte(h >> 24)
	_, _ = f.Write(buf[:])
	_, _ = f.Write(b)
	return Hash(f.Sum32())
}

// HashString folds a string (debug names, shader entry points) into h.
func HashString(h Hash, s string) Hash {
	return CombineBytes(h, []byte(s))
}
