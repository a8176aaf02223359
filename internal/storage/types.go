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

// The types below are the fixed-size, POD element types that back each
// Block in a Layout. Their job is to fix sizeof/alignof for MakeBlock[T];
// this package never interprets the bytes it relays between an input file
// and a Region, so the field names are suggestive, not load-bearing.

// Coordinate is a fixed-point longitude/latitude pair, laid out the way
// util::Coordinate is in the original implementation (two 32-bit fixed
// point integers, no floats, so every process agrees on the bit pattern).
type Coordinate struct {
	Lon int32
	Lat int32
}

// OSMNodeID is the externally-visible OpenStreetMap node identifier.
type OSMNodeID uint64

// EdgeWeight is a routing cost unit (weight or duration), scaled and
// rounded the way the original implementation's EdgeWeight/EdgeDuration
// types are.
type EdgeWeight int32

// CHGraphNode is one contraction-hierarchy node's adjacency range.
type CHGraphNode struct {
	FirstEdge uint32
	NumEdges  uint32
}

// CHGraphEdge is one contraction-hierarchy edge.
type CHGraphEdge struct {
	Target     uint32
	Weight     int32
	Duration   int32
	Flags      uint32
}

// EdgeBasedNodeData describes one edge-based node's source/target and
// annotation linkage.
type EdgeBasedNodeData struct {
	GeometryID       uint32
	ComponentID      uint32
	PackedGeometryID uint32
	Flags            uint8
	_                [3]byte
}

// NodeBasedEdgeAnnotation carries the per-edge metadata that would
// otherwise duplicate across every edge-based node sharing a geometry.
type NodeBasedEdgeAnnotation struct {
	DatasourceID uint8
	_            [3]byte
	NameID       uint32
}

// RTreeLeaf is one leaf entry of the on-disk static R-tree used for
// nearest-neighbor lookups.
type RTreeLeaf struct {
	MinLon, MinLat int32
	MaxLon, MaxLat int32
	ObjectID       uint32
}

// RTreeLevelBoundary marks where one R-tree level's children begin.
type RTreeLevelBoundary struct {
	FirstChild uint32
}

// TurnInstruction is the compact maneuver-type/modifier pair shown to
// users at a turn.
type TurnInstruction struct {
	Type     uint8
	Modifier uint8
}

// EntryClassID indexes into the EntryClass table.
type EntryClassID uint16

// EntryClass is a bitset of which bearings at an intersection are usable
// entry points.
type EntryClass uint64

// DiscreteBearing is a turn bearing quantized to the original
// implementation's resolution.
type DiscreteBearing uint16

// BearingClassID indexes into the bearing-class table.
type BearingClassID uint32

// LaneDataID indexes into the turn-lane table.
type LaneDataID uint16

// TurnLaneType is a bitmask describing one lane's permitted maneuvers at
// an intersection.
type TurnLaneType uint32

// MLDPartitionID identifies which cell a node belongs to at one
// multi-level Dijkstra partition level.
type MLDPartitionID uint32

// MLDCellData describes one MLD cell's offset ranges into its boundary
// and graph-node tables.
type MLDCellData struct {
	FirstChild  uint32
	ChildCount  uint32
	LevelOffset uint32
}

// MLDGraphNode is one MLD overlay-graph node's adjacency range.
type MLDGraphNode struct {
	FirstEdge uint32
	NumEdges  uint32
}

// MLDGraphEdge is one MLD overlay-graph edge.
type MLDGraphEdge struct {
	Target uint32
	Weight int32
}

// EngineProperties is the single scalar block of routing-engine-wide
// configuration (profile name, flags, continue-straight defaults) that is
// copied verbatim from .osrm.properties into shared memory.
type EngineProperties struct {
	UseTurnRestrictions uint8
	LeftHandDriving     uint8
	ContinueStraight    uint8
	_                   [1]byte
	MaxTurnWeight       int32
	FallbackCoordinate  Coordinate
}

// ManeuverOverride replaces the maneuver OSRM would otherwise compute at a
// specific node sequence with a user-authored one.
type ManeuverOverride struct {
	NodeSequenceOffset uint32
	NodeSequenceLength uint32
	Type               uint8
	Modifier           uint8
	_                  [2]byte
}
