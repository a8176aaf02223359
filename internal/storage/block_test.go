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

func TestMakeBlockComputesByteSize(t *testing.T) {
	b := MakeBlock[Coordinate](10)
	if b.NumEntries != 10 {
		t.Fatalf("NumEntries = %d, want 10", b.NumEntries)
	}
	if b.EntrySize != 8 {
		t.Fatalf("EntrySize = %d, want 8 (two int32 fields)", b.EntrySize)
	}
	if b.ByteSize != 80 {
		t.Fatalf("ByteSize = %d, want 80", b.ByteSize)
	}
}

func TestZeroBlockHasZeroEntries(t *testing.T) {
	b := zeroBlock[Coordinate]()
	if b.NumEntries != 0 || b.ByteSize != 0 {
		t.Fatalf("zeroBlock produced non-zero sizing: %+v", b)
	}
	if b.EntryAlign == 0 {
		t.Fatalf("zeroBlock must still carry a non-zero alignment")
	}
}
