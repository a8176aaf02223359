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

import "testing"

func TestBlockIDOrderAndCount(t *testing.T) {
	if int(NumBlocks) != 73 {
		t.Fatalf("expected 73 blocks, got %d", int(NumBlocks))
	}
	if NameCharData != 0 {
		t.Fatalf("NameCharData must be the first block, got index %d", NameCharData)
	}
	if ManeuverOverrideNodeSequences != NumBlocks-1 {
		t.Fatalf("ManeuverOverrideNodeSequences must be the last named block")
	}
}

func TestBlockIDString(t *testing.T) {
	if got := NameCharData.String(); got != "NAME_CHAR_DATA" {
		t.Fatalf("String() = %q", got)
	}
	if got := BlockID(-1).String(); got != "INVALID_BLOCK" {
		t.Fatalf("String() on out-of-range id = %q", got)
	}
}

func TestCHEdgeFilterAndMLDHelpers(t *testing.T) {
	for i := 0; i < MaxMetrics; i++ {
		if got, want := CHEdgeFilter(i), CHEdgeFilter0+BlockID(i); got != want {
			t.Fatalf("CHEdgeFilter(%d) = %v, want %v", i, got, want)
		}
		if got, want := MLDCellWeights(i), MLDCellWeights0+BlockID(i); got != want {
			t.Fatalf("MLDCellWeights(%d) = %v, want %v", i, got, want)
		}
		if got, want := MLDCellDurations(i), MLDCellDurations0+BlockID(i); got != want {
			t.Fatalf("MLDCellDurations(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestAlignedOffsetOfIsMonotonicAndAligned(t *testing.T) {
	var l Layout
	l.Set(NameCharData, MakeBlock[byte](17))
	l.Set(EdgeBasedNodeDataList, MakeBlock[EdgeBasedNodeData](3))
	l.Set(AnnotationDataList, MakeBlock[NodeBasedEdgeAnnotation](5))
	l.Set(CoordinateList, MakeBlock[Coordinate](9))

	prevEnd := uint64(0)
	for _, id := range []BlockID{NameCharData, EdgeBasedNodeDataList, AnnotationDataList, CoordinateList} {
		off := l.AlignedOffsetOf(id)
		if off < prevEnd {
			t.Fatalf("block %v offset %d overlaps previous block ending at %d", id, off, prevEnd)
		}
		align := l.Blocks[id].EntryAlign
		if align > 0 && off%align != 0 {
			t.Fatalf("block %v offset %d is not aligned to %d", id, off, align)
		}
		prevEnd = off + l.Blocks[id].ByteSize + canarySize
	}
}

func TestSizeIsUpperBoundOfRealLayout(t *testing.T) {
	var l Layout
	l.Set(NameCharData, MakeBlock[byte](1000))
	l.Set(CoordinateList, MakeBlock[Coordinate](1000))

	lastID := BlockID(NumBlocks - 1)
	realExtent := l.AlignedOffsetOf(lastID) + l.Blocks[lastID].ByteSize + canarySize
	if l.Size() < realExtent {
		t.Fatalf("Size() = %d is not an upper bound of the real extent %d", l.Size(), realExtent)
	}
}

func TestWriteBlockThenVerifyBlockRoundTrips(t *testing.T) {
	var l Layout
	l.Set(NameCharData, MakeBlock[byte](8))
	l.Set(CoordinateList, MakeBlock[Coordinate](2))

	base := make([]byte, l.Size())

	names := WriteBlock(base, &l, NameCharData)
	copy(names, []byte("berlin12"))

	coords := WriteBlock(base, &l, CoordinateList)
	copy(coords, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	gotNames, err := VerifyBlock(base, &l, NameCharData)
	if err != nil {
		t.Fatalf("VerifyBlock(NameCharData) failed: %v", err)
	}
	if string(gotNames) != "berlin12" {
		t.Fatalf("NameCharData round-trip = %q", gotNames)
	}

	gotCoords, err := VerifyBlock(base, &l, CoordinateList)
	if err != nil {
		t.Fatalf("VerifyBlock(CoordinateList) failed: %v", err)
	}
	if len(gotCoords) != len(coords) {
		t.Fatalf("CoordinateList round-trip length = %d, want %d", len(gotCoords), len(coords))
	}
}

func TestVerifyBlockDetectsCorruptedCanary(t *testing.T) {
	var l Layout
	l.Set(NameCharData, MakeBlock[byte](4))
	l.Set(CoordinateList, MakeBlock[Coordinate](1))
	base := make([]byte, l.Size())

	WriteBlock(base, &l, NameCharData)
	WriteBlock(base, &l, CoordinateList)

	off := l.AlignedOffsetOf(CoordinateList)
	base[off-1] ^= 0xFF // corrupt the last byte of CoordinateList's start canary

	if _, err := VerifyBlock(base, &l, CoordinateList); err == nil {
		t.Fatalf("expected a canary corruption error, got nil")
	} else if _, ok := err.(*CanaryCorruptError); !ok {
		t.Fatalf("expected *CanaryCorruptError, got %T: %v", err, err)
	}
}

func TestLayoutHeaderRoundTrip(t *testing.T) {
	var l Layout
	l.Set(NameCharData, MakeBlock[byte](42))
	l.Set(CoordinateList, MakeBlock[Coordinate](7))

	mem := make([]byte, SizeOfLayout()+l.Size())
	copy(mem, layoutBytes(&l))

	got := ReadLayoutHeader(mem)
	if got.Entries(NameCharData) != 42 {
		t.Fatalf("round-tripped NameCharData entries = %d, want 42", got.Entries(NameCharData))
	}
	if got.Entries(CoordinateList) != 7 {
		t.Fatalf("round-tripped CoordinateList entries = %d, want 7", got.Entries(CoordinateList))
	}
}
