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
	"context"
	"testing"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRunPublishesAndSwapsRegions(t *testing.T) {
	withTestRegionDir(t)
	dir := t.TempDir()
	paths := buildMinimalInputs(t, dir, "region")

	log := zerolog.Nop()
	pub := NewPublisher(paths, log)

	result, err := pub.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Region1, result.Region)
	assert.Equal(t, uint32(1), result.Timestamp)
	assert.False(t, result.Features.HasCH)
	assert.Greater(t, result.Bytes, uint64(0))

	monitor, err := OpenMonitor()
	require.NoError(t, err)
	defer monitor.Close()

	published, timestamp := monitor.Load()
	assert.Equal(t, Region1, published)
	assert.Equal(t, uint32(1), timestamp)
	require.True(t, RegionExists(Region1))

	region, err := OpenRegion(Region1)
	require.NoError(t, err)
	defer region.Close()
	defer RemoveRegion(Region1)

	layout := ReadLayoutHeader(region.Ptr())
	names, err := VerifyBlock(region.Ptr()[SizeOfLayout():], layout, NameCharData)
	require.NoError(t, err)
	assert.Equal(t, "berlin12", string(names))
}

func TestPublisherRunSwapsOutPreviousRegionAfterDetach(t *testing.T) {
	withTestRegionDir(t)
	dir := t.TempDir()
	paths := buildMinimalInputs(t, dir, "region")

	log := zerolog.Nop()
	pub := NewPublisher(paths, log)
	pub.DetachPoll = 0

	first, err := pub.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Region1, first.Region)

	second, err := pub.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Region2, second.Region)
	assert.Equal(t, uint32(2), second.Timestamp)

	assert.False(t, RegionExists(Region1), "previous region should be reclaimed once unattached")
	require.True(t, RegionExists(Region2))
	RemoveRegion(Region2)
}

// TestPublisherRunRemovesStaleNextRegion covers S3: a previous publisher
// crashed after allocating its next region but before ever publishing it,
// leaving it behind with nothing attached. A later run must remove and
// recreate it rather than fail or publish stale content.
func TestPublisherRunRemovesStaleNextRegion(t *testing.T) {
	withTestRegionDir(t)
	dir := t.TempDir()
	paths := buildMinimalInputs(t, dir, "region")

	live, err := CreateRegion(Region1, 64)
	require.NoError(t, err)
	live.Close()

	monitor, err := CreateMonitor()
	require.NoError(t, err)
	monitor.Store(Region1, 5)
	monitor.Close()

	stale, err := CreateRegion(Region2, 64)
	require.NoError(t, err)
	stale.Close()
	require.True(t, RegionExists(Region2))

	log := zerolog.Nop()
	pub := NewPublisher(paths, log)
	pub.DetachPoll = 0

	result, err := pub.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Region2, result.Region)
	assert.Equal(t, uint32(6), result.Timestamp)
	assert.False(t, RegionExists(Region1), "previous live region should be reclaimed once unattached")

	region, err := OpenRegion(Region2)
	require.NoError(t, err)
	defer region.Close()
	defer RemoveRegion(Region2)

	layout := ReadLayoutHeader(region.Ptr())
	names, err := VerifyBlock(region.Ptr()[SizeOfLayout():], layout, NameCharData)
	require.NoError(t, err)
	assert.Equal(t, "berlin12", string(names))
}

// TestPublisherRunRecoversFromStuckMonitor covers S4: the monitor mutex is
// held by a dead peer. With a short MaxWaitSeconds the publisher must
// destroy and recreate the monitor rather than block forever, publish
// successfully, and skip reclaiming whatever in_use pointed at before
// recovery (its region's fate can no longer be trusted once the monitor
// coordinating it was destroyed).
func TestPublisherRunRecoversFromStuckMonitor(t *testing.T) {
	withTestRegionDir(t)
	dir := t.TempDir()
	paths := buildMinimalInputs(t, dir, "region")

	// A prior "dead peer": nothing has ever been published (the monitor is
	// still at its default REGION_NONE/0), but its mutex is held and will
	// never be released, simulating a crash between acquiring the lock and
	// storing anything.
	stuck, err := CreateMonitor()
	require.NoError(t, err)
	require.NoError(t, stuck.Lock(context.Background(), 5))
	// stuck deliberately never Unlocks or Closes: its file descriptor leaks
	// for the duration of the test, mirroring a crashed process that never
	// got to run its own cleanup.

	log := zerolog.Nop()
	pub := NewPublisher(paths, log)
	pub.MaxWaitSeconds = 1
	pub.DetachPoll = 0

	result, err := pub.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.MonitorRecovered)
	assert.Equal(t, Region1, result.Region)
	assert.Equal(t, uint32(1), result.Timestamp, "the stuck monitor was still at timestamp 0, so the new publish lands at 1")

	monitor, err := OpenMonitor()
	require.NoError(t, err)
	defer monitor.Close()
	published, timestamp := monitor.Load()
	assert.Equal(t, Region1, published)
	assert.Equal(t, uint32(1), timestamp)

	RemoveRegion(Region1)
}

// TestPublisherRunPublishesMLDOnlyDeployment covers S6: .osrm.hsgr is
// absent but .osrm.partition/.osrm.cells/.osrm.mldgr are present. The CH
// blocks must come out zero-sized while the MLD blocks are populated, and
// the publish must succeed.
func TestPublisherRunPublishesMLDOnlyDeployment(t *testing.T) {
	withTestRegionDir(t)
	dir := t.TempDir()
	paths := buildMinimalInputs(t, dir, "region")

	const checksum = uint32(0xC0FFEE) // must match buildMinimalInputs' edges checksum

	partition := newFixture(t, paths.Partition)
	partition.vector(1, []uint32{0})
	partition.vector(2, []MLDPartitionID{0, 1})
	partition.vector(1, []uint32{0})
	partition.close()

	cells := newFixture(t, paths.Cells)
	cells.u32(0) // numMetrics
	cells.vector(1, []MLDCellData{{FirstChild: 0, ChildCount: 2, LevelOffset: 0}})
	cells.vector(1, []uint32{0})
	cells.vector(1, []uint32{0})
	cells.vector(1, []uint32{0})
	cells.close()

	mldgr := newFixture(t, paths.MLDGR)
	mldgr.u32(checksum)
	mldgr.vector(1, []MLDGraphNode{{FirstEdge: 0, NumEdges: 0}})
	mldgr.vector(0, []MLDGraphEdge{})
	mldgr.vector(1, []uint32{0})
	mldgr.close()

	log := zerolog.Nop()
	pub := NewPublisher(paths, log)

	result, err := pub.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Features.HasCH)
	assert.True(t, result.Features.HasMLD)

	region, err := OpenRegion(Region1)
	require.NoError(t, err)
	defer region.Close()
	defer RemoveRegion(Region1)

	layout := ReadLayoutHeader(region.Ptr())
	base := region.Ptr()[SizeOfLayout():]

	assert.Equal(t, uint64(0), layout.Entries(CHGraphNodeList), "CH blocks must be zero-sized in an MLD-only deployment")

	nodes, err := VerifyBlock(base, layout, MLDGraphNodeList)
	require.NoError(t, err)
	assert.Len(t, nodes, int(unsafe.Sizeof(MLDGraphNode{})))
}
