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

import (
	"os"
	"path/filepath"
)

// RegionID names one of the two double-buffered shared memory slots, or
// the sentinel meaning "nothing published yet".
type RegionID int

const (
	RegionNone RegionID = iota
	Region1
	Region2
)

func (r RegionID) String() string {
	switch r {
	case Region1:
		return "REGION_1"
	case Region2:
		return "REGION_2"
	case RegionNone:
		return "REGION_NONE"
	default:
		return "INVALID_REGION"
	}
}

// NextRegion picks the slot a publisher should write into, given the
// currently in-use region: the in-use region is never the same as the
// next one while both are addressable, which is the essence of the double
// buffering.
func NextRegion(inUse RegionID) RegionID {
	if inUse == Region2 || inUse == RegionNone {
		return Region1
	}
	return Region2
}

// Region is an OS-level named shared memory segment: a file under /dev/shm
// (falling back to os.TempDir when /dev/shm is unavailable), memory-mapped
// MAP_SHARED so every process that opens it sees the same bytes. Byte 0 of
// Region.Ptr() holds a bitwise copy of the Layout descriptor once the
// publisher has populated it; the payload blocks begin at SizeOfLayout().
type Region struct {
	file *os.File
	mem  []byte
	path string
	id   RegionID
}

// Ptr returns the mapped bytes of the region.
func (r *Region) Ptr() []byte { return r.mem }

// regionFileName is the on-disk (or /dev/shm) basename for a region slot.
func regionFileName(id RegionID) string {
	switch id {
	case Region1:
		return "osrm_region_1"
	case Region2:
		return "osrm_region_2"
	default:
		return "osrm_region_none"
	}
}

func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	if err != nil {
		return false
	}
	return info.IsDir()
}

// testRegionDir, when non-empty, overrides where regions and their
// sidecars are created. It exists so package tests can run many
// Create/Remove cycles without colliding on the fixed, process-wide
// /dev/shm paths real publishers use.
var testRegionDir string

func regionPath(id RegionID) string {
	name := regionFileName(id)
	if testRegionDir != "" {
		return filepath.Join(testRegionDir, name)
	}
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", name)
	}
	return filepath.Join(os.TempDir(), name)
}

func attachCounterPath(id RegionID) string {
	return regionPath(id) + ".attach"
}
