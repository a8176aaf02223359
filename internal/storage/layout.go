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

// BlockID is a closed enumeration of named blocks. Its order is the ABI
// between the publisher and any process that later maps the region: both
// sides must compile against the same enumeration to compute identical
// offsets. The order below matches osrm::storage::DataLayout::BlockID in
// the original implementation entry for entry.
type BlockID int

const (
	NameCharData BlockID = iota
	EdgeBasedNodeDataList
	AnnotationDataList
	CHGraphNodeList
	CHGraphEdgeList
	CHEdgeFilter0
	CHEdgeFilter1
	CHEdgeFilter2
	CHEdgeFilter3
	CHEdgeFilter4
	CHEdgeFilter5
	CHEdgeFilter6
	CHEdgeFilter7
	CoordinateList
	OSMNodeIDList
	TurnInstruction
	EntryClassID
	RSearchTree
	RSearchTreeLevels
	GeometriesIndex
	GeometriesNodeList
	GeometriesFwdWeightList
	GeometriesRevWeightList
	GeometriesFwdDurationList
	GeometriesRevDurationList
	GeometriesFwdDatasourcesList
	GeometriesRevDatasourcesList
	HSGRChecksum
	Timestamp
	FileIndexPath
	DatasourcesNames
	Properties
	BearingClassID
	BearingOffsets
	BearingBlocks
	BearingValues
	EntryClass
	LaneDataID
	PreTurnBearing
	PostTurnBearing
	TurnLaneData
	LaneDescriptionOffsets
	LaneDescriptionMasks
	TurnWeightPenalties
	TurnDurationPenalties
	MLDLevelData
	MLDPartition
	MLDCellToChildren
	MLDCellWeights0
	MLDCellWeights1
	MLDCellWeights2
	MLDCellWeights3
	MLDCellWeights4
	MLDCellWeights5
	MLDCellWeights6
	MLDCellWeights7
	MLDCellDurations0
	MLDCellDurations1
	MLDCellDurations2
	MLDCellDurations3
	MLDCellDurations4
	MLDCellDurations5
	MLDCellDurations6
	MLDCellDurations7
	MLDCellSourceBoundary
	MLDCellDestinationBoundary
	MLDCells
	MLDCellLevelOffsets
	MLDGraphNodeList
	MLDGraphEdgeList
	MLDGraphNodeToOffset
	ManeuverOverrides
	ManeuverOverrideNodeSequences

	NumBlocks
)

// MaxMetrics is the fixed maximum number of parallel metric arrays
// supported by both the CH edge filters and the MLD cell metrics.
const MaxMetrics = 8

// CHEdgeFilter returns the BlockID for the index-th CH edge filter,
// index must be in [0, MaxMetrics).
func CHEdgeFilter(index int) BlockID { return CHEdgeFilter0 + BlockID(index) }

// MLDCellWeights returns the BlockID for the index-th MLD cell weights
// block, index must be in [0, MaxMetrics).
func MLDCellWeights(index int) BlockID { return MLDCellWeights0 + BlockID(index) }

// MLDCellDurations returns the BlockID for the index-th MLD cell durations
// block, index must be in [0, MaxMetrics).
func MLDCellDurations(index int) BlockID { return MLDCellDurations0 + BlockID(index) }

var blockIDNames = [NumBlocks]string{
	"NAME_CHAR_DATA",
	"EDGE_BASED_NODE_DATA",
	"ANNOTATION_DATA",
	"CH_GRAPH_NODE_LIST",
	"CH_GRAPH_EDGE_LIST",
	"CH_EDGE_FILTER_0",
	"CH_EDGE_FILTER_1",
	"CH_EDGE_FILTER_2",
	"CH_EDGE_FILTER_3",
	"CH_EDGE_FILTER_4",
	"CH_EDGE_FILTER_5",
	"CH_EDGE_FILTER_6",
	"CH_EDGE_FILTER_7",
	"COORDINATE_LIST",
	"OSM_NODE_ID_LIST",
	"TURN_INSTRUCTION",
	"ENTRY_CLASSID",
	"R_SEARCH_TREE",
	"R_SEARCH_TREE_LEVELS",
	"GEOMETRIES_INDEX",
	"GEOMETRIES_NODE_LIST",
	"GEOMETRIES_FWD_WEIGHT_LIST",
	"GEOMETRIES_REV_WEIGHT_LIST",
	"GEOMETRIES_FWD_DURATION_LIST",
	"GEOMETRIES_REV_DURATION_LIST",
	"GEOMETRIES_FWD_DATASOURCES_LIST",
	"GEOMETRIES_REV_DATASOURCES_LIST",
	"HSGR_CHECKSUM",
	"TIMESTAMP",
	"FILE_INDEX_PATH",
	"DATASOURCES_NAMES",
	"PROPERTIES",
	"BEARING_CLASSID",
	"BEARING_OFFSETS",
	"BEARING_BLOCKS",
	"BEARING_VALUES",
	"ENTRY_CLASS",
	"LANE_DATA_ID",
	"PRE_TURN_BEARING",
	"POST_TURN_BEARING",
	"TURN_LANE_DATA",
	"LANE_DESCRIPTION_OFFSETS",
	"LANE_DESCRIPTION_MASKS",
	"TURN_WEIGHT_PENALTIES",
	"TURN_DURATION_PENALTIES",
	"MLD_LEVEL_DATA",
	"MLD_PARTITION",
	"MLD_CELL_TO_CHILDREN",
	"MLD_CELL_WEIGHTS_0",
	"MLD_CELL_WEIGHTS_1",
	"MLD_CELL_WEIGHTS_2",
	"MLD_CELL_WEIGHTS_3",
	"MLD_CELL_WEIGHTS_4",
	"MLD_CELL_WEIGHTS_5",
	"MLD_CELL_WEIGHTS_6",
	"MLD_CELL_WEIGHTS_7",
	"MLD_CELL_DURATIONS_0",
	"MLD_CELL_DURATIONS_1",
	"MLD_CELL_DURATIONS_2",
	"MLD_CELL_DURATIONS_3",
	"MLD_CELL_DURATIONS_4",
	"MLD_CELL_DURATIONS_5",
	"MLD_CELL_DURATIONS_6",
	"MLD_CELL_DURATIONS_7",
	"MLD_CELL_SOURCE_BOUNDARY",
	"MLD_CELL_DESTINATION_BOUNDARY",
	"MLD_CELLS",
	"MLD_CELL_LEVEL_OFFSETS",
	"MLD_GRAPH_NODE_LIST",
	"MLD_GRAPH_EDGE_LIST",
	"MLD_GRAPH_NODE_TO_OFFSET",
	"MANEUVER_OVERRIDES",
	"MANEUVER_OVERRIDE_NODE_SEQUENCES",
}

func (id BlockID) String() string {
	if id < 0 || int(id) >= len(blockIDNames) {
		return "INVALID_BLOCK"
	}
	return blockIDNames[id]
}

// Layout is a fixed-length, ordered set of named Blocks. It is built fresh
// on every publish and never mutated once the populator starts; a bitwise
// copy of it is written to byte 0 of the published region so that a reader
// compiled against the same BlockID enumeration can recompute every offset
// from that prefix alone.
type Layout struct {
	Blocks [NumBlocks]Block
}

// Set records the descriptor for id. It must be called exactly once per id
// before any sizing query against that id is valid.
func (l *Layout) Set(id BlockID, b Block) {
	l.Blocks[id] = b
}

// Entries returns the entry count previously set for id.
func (l *Layout) Entries(id BlockID) uint64 { return l.Blocks[id].NumEntries }

// BlockSize returns the byte size previously set for id.
func (l *Layout) BlockSize(id BlockID) uint64 { return l.Blocks[id].ByteSize }

// alignUp rounds size up to the next multiple of align (align must be a
// power of two). An align of zero, as carried by a Block that was never
// Set, adds no padding.
func alignUp(size, align uint64) uint64 {
	if align == 0 {
		return size
	}
	return (size + align - 1) &^ (align - 1)
}

// AlignedOffsetOf replays the canary/alignment/size accounting from byte 0
// of the payload area up to and including block id, returning the byte
// offset at which id's payload begins (its start canary sits immediately
// before this offset). Implementations must never shortcut this by summing
// stored cumulative sizes — the alignment padding before each block depends
// on the running offset, which can only be known by replaying from the
// base.
func (l *Layout) AlignedOffsetOf(id BlockID) uint64 {
	var offset uint64
	for i := BlockID(0); i < id; i++ {
		offset += canarySize
		offset = alignUp(offset, l.Blocks[i].EntryAlign)
		offset += l.Blocks[i].ByteSize
		offset += canarySize
	}
	offset += canarySize
	offset = alignUp(offset, l.Blocks[id].EntryAlign)
	return offset
}

// Size returns an upper bound on the total payload size: for every block,
// two canaries plus its byte size plus its full alignment (absorbing the
// worst-case padding). Allocation uses this bound; AlignedOffsetOf computes
// the exact offsets once a base address is known.
func (l *Layout) Size() uint64 {
	var total uint64
	for i := range l.Blocks {
		total += 2*canarySize + l.Blocks[i].ByteSize + l.Blocks[i].EntryAlign
	}
	return total
}

// SizeOfLayout reports sizeof(Layout) as the original C++ ABI would see it: this
// is the number of bytes the publisher copies verbatim to byte 0 of a
// newly allocated region.
func SizeOfLayout() uint64 {
	var l Layout
	return uint64(unsafe.Sizeof(l))
}

// blockPtr returns the payload slice for id within base (base is the start
// of the payload area, i.e. region bytes after the Layout descriptor
// prefix). When writeCanary is true both bracketing canaries are stamped;
// otherwise both are verified and a CanaryCorrupt error is returned on
// mismatch.
func blockPtr(base []byte, l *Layout, id BlockID, writeCanary bool) ([]byte, error) {
	offset := l.AlignedOffsetOf(id)
	size := l.Blocks[id].ByteSize

	startCanary := base[offset-canarySize : offset]
	endCanary := base[offset+size : offset+size+canarySize]

	if writeCanary {
		stampCanary(startCanary)
		stampCanary(endCanary)
		return base[offset : offset+size], nil
	}

	if !canaryAlive(startCanary) {
		return nil, &CanaryCorruptError{Block: id, Side: CanarySideStart}
	}
	if !canaryAlive(endCanary) {
		return nil, &CanaryCorruptError{Block: id, Side: CanarySideEnd}
	}
	return base[offset : offset+size], nil
}

// WriteBlock returns id's payload slice within base, stamping both
// bracketing canaries. Used by the populator, including for zero-sized
// blocks (stamping still happens so a reader always finds live canaries).
func WriteBlock(base []byte, l *Layout, id BlockID) []byte {
	b, err := blockPtr(base, l, id, true)
	if err != nil {
		// writeCanary=true never returns an error.
		panic(err)
	}
	return b
}

// VerifyBlock returns id's payload slice within base after checking both
// bracketing canaries, failing with a block-identified error on mismatch.
func VerifyBlock(base []byte, l *Layout, id BlockID) ([]byte, error) {
	return blockPtr(base, l, id, false)
}

// layoutBytes views l as a raw byte slice of length SizeOfLayout(), the
// bitwise representation written to byte 0 of a region and read back by
// ReadLayoutHeader.
func layoutBytes(l *Layout) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(l)), int(unsafe.Sizeof(*l)))
}

// ReadLayoutHeader recovers the Layout a publisher wrote to byte 0 of a
// region, by bitwise copying SizeOfLayout() bytes back into a fresh
// Layout value.
func ReadLayoutHeader(mem []byte) *Layout {
	var l Layout
	copy(layoutBytes(&l), mem[:SizeOfLayout()])
	return &l
}
