/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package storage

import "unsafe"

// Block describes one typed, contiguous run of entries inside a Layout. A
// zero-entry Block is legal: its ByteSize is zero but it still consumes two
// canaries and whatever alignment padding its EntryAlign calls for.
type Block struct {
	NumEntries uint64 // number of entries
	ByteSize   uint64 // NumEntries * EntrySize
	EntrySize  uint64 // sizeof(T)
	EntryAlign uint64 // alignof(T), power of two, > 0
}

// MakeBlock builds a Block descriptor for n entries of T, the way the
// teacher's typed segment views (hdrView/ringView in shm_segment.go) derive
// their layout from a concrete Go type rather than a runtime schema.
func MakeBlock[T any](n uint64) Block {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	align := uint64(unsafe.Alignof(zero))
	return Block{
		NumEntries: n,
		ByteSize:   n * size,
		EntrySize:  size,
		EntryAlign: align,
	}
}

// zeroBlock returns a Block of zero entries of T (zero size, T's alignment) — used by the
// sizer when an optional input file is absent but the block enumeration
// still requires a slot (every optional input that is absent still gets a
// zero-sized block; the enumeration is fixed ABI).
func zeroBlock[T any]() Block {
	return MakeBlock[T](0)
}
