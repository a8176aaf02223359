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

import "fmt"

// FeatureSet records which optional inputs were present during sizing, so
// the populator (which walks the same files a second time) knows without
// re-probing the filesystem whether to expect a given file to exist.
type FeatureSet struct {
	HasCH                bool
	HasICD               bool
	HasTLD               bool
	HasPartition         bool
	HasCells             bool
	HasMLD               bool
	HasManeuverOverrides bool
	NumCHMetrics         int
	NumMLDMetrics        int
}

func requireReader(path string) (*FileReader, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return nil, err
	}
	if fr == nil {
		return nil, &IOFailureError{Path: path, Cause: errNotFound}
	}
	return fr, nil
}

// PopulateLayout walks every input named by paths exactly once, in the
// fixed order the populator will later replay, and records each block's
// entry count in layout. Optional inputs that are absent get a zero-sized
// block rather than aborting the run; required inputs that are absent are
// an IOFailureError. It mirrors Storage::PopulateLayout in the original
// implementation block family for block family.
func PopulateLayout(layout *Layout, paths InputPaths) (FeatureSet, error) {
	var features FeatureSet

	if err := sizeNames(layout, paths.Names); err != nil {
		return features, err
	}
	if err := sizeProperties(layout, paths.Properties); err != nil {
		return features, err
	}
	if err := sizeTimestamp(layout, paths.Timestamp); err != nil {
		return features, err
	}
	if err := sizeRamIndex(layout, paths.Ramindex); err != nil {
		return features, err
	}
	// .osrm.fileIndex is never opened: only its absolute path is stored, as a
	// null-terminated string, so a reader can later open the R-tree file index
	// itself. Mirrors Storage::PopulateLayout's FILE_INDEX_PATH sizing.
	layout.Set(FileIndexPath, MakeBlock[byte](uint64(len(paths.FileIndex)+1)))

	if err := sizeEdgeBasedNodes(layout, paths.EdgeBasedNodes); err != nil {
		return features, err
	}
	if err := sizeEdges(layout, paths.Edges, paths.TurnWeightPenalties, paths.TurnDurationPenalties); err != nil {
		return features, err
	}
	if err := sizeNodeBasedNodes(layout, paths.NodeBasedNodes); err != nil {
		return features, err
	}
	if err := sizeGeometry(layout, paths.Geometry); err != nil {
		return features, err
	}
	if err := sizeDatasourceNames(layout, paths.DatasourceNames); err != nil {
		return features, err
	}

	numCH, err := sizeHSGR(layout, paths.HSGR)
	if err != nil {
		return features, err
	}
	features.HasCH = numCH >= 0
	if numCH > 0 {
		features.NumCHMetrics = numCH
	}

	hasICD, err := sizeICD(layout, paths.ICD)
	if err != nil {
		return features, err
	}
	features.HasICD = hasICD

	hasTLD, err := sizeTLD(layout, paths.TLD)
	if err != nil {
		return features, err
	}
	features.HasTLD = hasTLD

	hasPartition, err := sizePartition(layout, paths.Partition)
	if err != nil {
		return features, err
	}
	features.HasPartition = hasPartition

	numMLD, err := sizeCells(layout, paths.Cells)
	if err != nil {
		return features, err
	}
	features.HasCells = numMLD >= 0
	if numMLD > 0 {
		features.NumMLDMetrics = numMLD
	}

	hasMLDGR, err := sizeMLDGR(layout, paths.MLDGR)
	if err != nil {
		return features, err
	}
	features.HasMLD = hasPartition && hasMLDGR && numMLD >= 0

	hasOverrides, err := sizeManeuverOverrides(layout, paths.ManeuverOverrides)
	if err != nil {
		return features, err
	}
	features.HasManeuverOverrides = hasOverrides

	return features, nil
}

func sizeNames(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	layout.Set(NameCharData, MakeBlock[byte](n))
	return nil
}

func sizeProperties(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	layout.Set(Properties, MakeBlock[EngineProperties](1))
	return nil
}

func sizeTimestamp(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	layout.Set(Timestamp, MakeBlock[byte](n))
	return nil
}

func sizeRamIndex(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	nLeaves, err := ReadVectorSize[RTreeLeaf](fr)
	if err != nil {
		return err
	}
	if err := Skip[RTreeLeaf](fr, nLeaves); err != nil {
		return err
	}
	layout.Set(RSearchTree, MakeBlock[RTreeLeaf](nLeaves))

	nLevels, err := ReadVectorSize[RTreeLevelBoundary](fr)
	if err != nil {
		return err
	}
	if err := Skip[RTreeLevelBoundary](fr, nLevels); err != nil {
		return err
	}
	layout.Set(RSearchTreeLevels, MakeBlock[RTreeLevelBoundary](nLevels))
	return nil
}

func sizeEdgeBasedNodes(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n, err := ReadVectorSize[EdgeBasedNodeData](fr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeBasedNodeData](fr, n); err != nil {
		return err
	}
	layout.Set(EdgeBasedNodeDataList, MakeBlock[EdgeBasedNodeData](n))

	m, err := ReadVectorSize[NodeBasedEdgeAnnotation](fr)
	if err != nil {
		return err
	}
	if err := Skip[NodeBasedEdgeAnnotation](fr, m); err != nil {
		return err
	}
	layout.Set(AnnotationDataList, MakeBlock[NodeBasedEdgeAnnotation](m))
	return nil
}

func sizeEdges(layout *Layout, edgesPath, weightPath, durationPath string) error {
	fr, err := requireReader(edgesPath)
	if err != nil {
		return err
	}
	defer fr.Close()

	if _, err := fr.ReadUint32(); err != nil { // connectivity checksum, consumed again in populate
		return err
	}

	n, err := ReadVectorSize[TurnInstruction](fr)
	if err != nil {
		return err
	}
	if err := Skip[TurnInstruction](fr, n); err != nil {
		return err
	}
	layout.Set(TurnInstruction, MakeBlock[TurnInstruction](n))

	if err := Skip[EntryClassID](fr, n); err != nil {
		return err
	}
	layout.Set(EntryClassID, MakeBlock[EntryClassID](n))

	if err := Skip[DiscreteBearing](fr, n); err != nil {
		return err
	}
	layout.Set(PreTurnBearing, MakeBlock[DiscreteBearing](n))

	if err := Skip[DiscreteBearing](fr, n); err != nil {
		return err
	}
	layout.Set(PostTurnBearing, MakeBlock[DiscreteBearing](n))

	if err := Skip[LaneDataID](fr, n); err != nil {
		return err
	}
	layout.Set(LaneDataID, MakeBlock[LaneDataID](n))

	m, err := ReadVectorSize[EntryClass](fr)
	if err != nil {
		return err
	}
	if err := Skip[EntryClass](fr, m); err != nil {
		return err
	}
	layout.Set(EntryClass, MakeBlock[EntryClass](m))

	wfr, err := requireReader(weightPath)
	if err != nil {
		return err
	}
	defer wfr.Close()
	wn, err := ReadVectorSize[EdgeWeight](wfr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](wfr, wn); err != nil {
		return err
	}
	layout.Set(TurnWeightPenalties, MakeBlock[EdgeWeight](wn))

	dfr, err := requireReader(durationPath)
	if err != nil {
		return err
	}
	defer dfr.Close()
	dn, err := ReadVectorSize[EdgeWeight](dfr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](dfr, dn); err != nil {
		return err
	}
	layout.Set(TurnDurationPenalties, MakeBlock[EdgeWeight](dn))
	return nil
}

func sizeNodeBasedNodes(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n, err := ReadVectorSize[Coordinate](fr)
	if err != nil {
		return err
	}
	if err := Skip[Coordinate](fr, n); err != nil {
		return err
	}
	layout.Set(CoordinateList, MakeBlock[Coordinate](n))

	if err := Skip[OSMNodeID](fr, n); err != nil {
		return err
	}
	layout.Set(OSMNodeIDList, MakeBlock[OSMNodeID](n))
	return nil
}

func sizeGeometry(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	nIndex, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := Skip[uint32](fr, nIndex); err != nil {
		return err
	}
	layout.Set(GeometriesIndex, MakeBlock[uint32](nIndex))

	nNodes, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := Skip[uint32](fr, nNodes); err != nil {
		return err
	}
	layout.Set(GeometriesNodeList, MakeBlock[uint32](nNodes))

	fwdW, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](fr, fwdW); err != nil {
		return err
	}
	layout.Set(GeometriesFwdWeightList, MakeBlock[EdgeWeight](fwdW))

	revW, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](fr, revW); err != nil {
		return err
	}
	layout.Set(GeometriesRevWeightList, MakeBlock[EdgeWeight](revW))

	if fwdW != revW {
		return &IOFailureError{
			Path:  path,
			Cause: fmt.Errorf("forward weight count %d does not equal reverse weight count %d", fwdW, revW),
		}
	}

	fwdD, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](fr, fwdD); err != nil {
		return err
	}
	layout.Set(GeometriesFwdDurationList, MakeBlock[EdgeWeight](fwdD))

	revD, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := Skip[EdgeWeight](fr, revD); err != nil {
		return err
	}
	layout.Set(GeometriesRevDurationList, MakeBlock[EdgeWeight](revD))

	fwdDS, err := ReadVectorSize[uint8](fr)
	if err != nil {
		return err
	}
	if err := Skip[uint8](fr, fwdDS); err != nil {
		return err
	}
	layout.Set(GeometriesFwdDatasourcesList, MakeBlock[uint8](fwdDS))

	revDS, err := ReadVectorSize[uint8](fr)
	if err != nil {
		return err
	}
	if err := Skip[uint8](fr, revDS); err != nil {
		return err
	}
	layout.Set(GeometriesRevDatasourcesList, MakeBlock[uint8](revDS))
	return nil
}

func sizeDatasourceNames(layout *Layout, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	layout.Set(DatasourcesNames, MakeBlock[byte](n))
	return nil
}

// sizeHSGR returns the number of CH metrics found, or -1 if the CH graph
// file is absent (CH support is optional per run).
func sizeHSGR(layout *Layout, path string) (int, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return -1, err
	}
	if fr == nil {
		layout.Set(HSGRChecksum, zeroBlock[uint32]())
		layout.Set(CHGraphNodeList, zeroBlock[CHGraphNode]())
		layout.Set(CHGraphEdgeList, zeroBlock[CHGraphEdge]())
		for i := 0; i < MaxMetrics; i++ {
			layout.Set(CHEdgeFilter(i), zeroBlock[uint8]())
		}
		return -1, nil
	}
	defer fr.Close()

	if _, err := fr.ReadUint32(); err != nil {
		return 0, err
	}
	layout.Set(HSGRChecksum, MakeBlock[uint32](1))

	numMetrics, err := fr.ReadUint32()
	if err != nil {
		return 0, err
	}
	if numMetrics > MaxMetrics {
		return 0, &TooManyMetricsError{Path: path, Found: uint64(numMetrics), Max: MaxMetrics}
	}

	n, err := ReadVectorSize[CHGraphNode](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[CHGraphNode](fr, n); err != nil {
		return 0, err
	}
	layout.Set(CHGraphNodeList, MakeBlock[CHGraphNode](n))

	m, err := ReadVectorSize[CHGraphEdge](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[CHGraphEdge](fr, m); err != nil {
		return 0, err
	}
	layout.Set(CHGraphEdgeList, MakeBlock[CHGraphEdge](m))

	for i := 0; i < int(numMetrics); i++ {
		if err := Skip[uint8](fr, m); err != nil {
			return 0, err
		}
		layout.Set(CHEdgeFilter(i), MakeBlock[uint8](m))
	}
	for i := int(numMetrics); i < MaxMetrics; i++ {
		layout.Set(CHEdgeFilter(i), zeroBlock[uint8]())
	}
	return int(numMetrics), nil
}

func sizeICD(layout *Layout, path string) (bool, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return false, err
	}
	if fr == nil {
		layout.Set(BearingClassID, zeroBlock[BearingClassID]())
		layout.Set(BearingOffsets, zeroBlock[uint32]())
		layout.Set(BearingBlocks, zeroBlock[uint32]())
		layout.Set(BearingValues, zeroBlock[DiscreteBearing]())
		return false, nil
	}
	defer fr.Close()

	n1, err := ReadVectorSize[BearingClassID](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[BearingClassID](fr, n1); err != nil {
		return false, err
	}
	layout.Set(BearingClassID, MakeBlock[BearingClassID](n1))

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, n2); err != nil {
		return false, err
	}
	layout.Set(BearingOffsets, MakeBlock[uint32](n2))

	n3, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, n3); err != nil {
		return false, err
	}
	layout.Set(BearingBlocks, MakeBlock[uint32](n3))

	n4, err := ReadVectorSize[DiscreteBearing](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[DiscreteBearing](fr, n4); err != nil {
		return false, err
	}
	layout.Set(BearingValues, MakeBlock[DiscreteBearing](n4))
	return true, nil
}

func sizeTLD(layout *Layout, path string) (bool, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return false, err
	}
	if fr == nil {
		layout.Set(TurnLaneData, zeroBlock[TurnLaneType]())
		layout.Set(LaneDescriptionOffsets, zeroBlock[uint32]())
		layout.Set(LaneDescriptionMasks, zeroBlock[byte]())
		return false, nil
	}
	defer fr.Close()

	n1, err := ReadVectorSize[TurnLaneType](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[TurnLaneType](fr, n1); err != nil {
		return false, err
	}
	layout.Set(TurnLaneData, MakeBlock[TurnLaneType](n1))

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, n2); err != nil {
		return false, err
	}
	layout.Set(LaneDescriptionOffsets, MakeBlock[uint32](n2))

	n3, err := fr.ReadCount()
	if err != nil {
		return false, err
	}
	if err := Skip[byte](fr, n3); err != nil {
		return false, err
	}
	layout.Set(LaneDescriptionMasks, MakeBlock[byte](n3))
	return true, nil
}

func sizePartition(layout *Layout, path string) (bool, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return false, err
	}
	if fr == nil {
		layout.Set(MLDLevelData, zeroBlock[uint32]())
		layout.Set(MLDPartition, zeroBlock[MLDPartitionID]())
		layout.Set(MLDCellToChildren, zeroBlock[uint32]())
		return false, nil
	}
	defer fr.Close()

	n0, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, n0); err != nil {
		return false, err
	}
	layout.Set(MLDLevelData, MakeBlock[uint32](n0))

	n1, err := ReadVectorSize[MLDPartitionID](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[MLDPartitionID](fr, n1); err != nil {
		return false, err
	}
	layout.Set(MLDPartition, MakeBlock[MLDPartitionID](n1))

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, n2); err != nil {
		return false, err
	}
	layout.Set(MLDCellToChildren, MakeBlock[uint32](n2))
	return true, nil
}

// sizeCells returns the number of MLD cell metrics found, or -1 if the
// cells file is absent.
func sizeCells(layout *Layout, path string) (int, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return -1, err
	}
	if fr == nil {
		layout.Set(MLDCells, zeroBlock[MLDCellData]())
		layout.Set(MLDCellLevelOffsets, zeroBlock[uint32]())
		layout.Set(MLDCellSourceBoundary, zeroBlock[uint32]())
		layout.Set(MLDCellDestinationBoundary, zeroBlock[uint32]())
		for i := 0; i < MaxMetrics; i++ {
			layout.Set(MLDCellWeights(i), zeroBlock[EdgeWeight]())
			layout.Set(MLDCellDurations(i), zeroBlock[EdgeWeight]())
		}
		return -1, nil
	}
	defer fr.Close()

	numMetrics, err := fr.ReadUint32()
	if err != nil {
		return 0, err
	}
	if numMetrics > MaxMetrics {
		return 0, &TooManyMetricsError{Path: path, Found: uint64(numMetrics), Max: MaxMetrics}
	}

	n1, err := ReadVectorSize[MLDCellData](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[MLDCellData](fr, n1); err != nil {
		return 0, err
	}
	layout.Set(MLDCells, MakeBlock[MLDCellData](n1))

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[uint32](fr, n2); err != nil {
		return 0, err
	}
	layout.Set(MLDCellLevelOffsets, MakeBlock[uint32](n2))

	n3, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[uint32](fr, n3); err != nil {
		return 0, err
	}
	layout.Set(MLDCellSourceBoundary, MakeBlock[uint32](n3))

	n4, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return 0, err
	}
	if err := Skip[uint32](fr, n4); err != nil {
		return 0, err
	}
	layout.Set(MLDCellDestinationBoundary, MakeBlock[uint32](n4))

	for i := 0; i < int(numMetrics); i++ {
		w, err := ReadVectorSize[EdgeWeight](fr)
		if err != nil {
			return 0, err
		}
		if err := Skip[EdgeWeight](fr, w); err != nil {
			return 0, err
		}
		layout.Set(MLDCellWeights(i), MakeBlock[EdgeWeight](w))

		d, err := ReadVectorSize[EdgeWeight](fr)
		if err != nil {
			return 0, err
		}
		if err := Skip[EdgeWeight](fr, d); err != nil {
			return 0, err
		}
		layout.Set(MLDCellDurations(i), MakeBlock[EdgeWeight](d))
	}
	for i := int(numMetrics); i < MaxMetrics; i++ {
		layout.Set(MLDCellWeights(i), zeroBlock[EdgeWeight]())
		layout.Set(MLDCellDurations(i), zeroBlock[EdgeWeight]())
	}
	return int(numMetrics), nil
}

func sizeMLDGR(layout *Layout, path string) (bool, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return false, err
	}
	if fr == nil {
		layout.Set(MLDGraphNodeList, zeroBlock[MLDGraphNode]())
		layout.Set(MLDGraphEdgeList, zeroBlock[MLDGraphEdge]())
		layout.Set(MLDGraphNodeToOffset, zeroBlock[uint32]())
		return false, nil
	}
	defer fr.Close()

	if _, err := fr.ReadUint32(); err != nil { // connectivity checksum
		return false, err
	}

	n, err := ReadVectorSize[MLDGraphNode](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[MLDGraphNode](fr, n); err != nil {
		return false, err
	}
	layout.Set(MLDGraphNodeList, MakeBlock[MLDGraphNode](n))

	m, err := ReadVectorSize[MLDGraphEdge](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[MLDGraphEdge](fr, m); err != nil {
		return false, err
	}
	layout.Set(MLDGraphEdgeList, MakeBlock[MLDGraphEdge](m))

	p, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, p); err != nil {
		return false, err
	}
	layout.Set(MLDGraphNodeToOffset, MakeBlock[uint32](p))
	return true, nil
}

func sizeManeuverOverrides(layout *Layout, path string) (bool, error) {
	fr, err := OpenFileReader(path)
	if err != nil {
		return false, err
	}
	if fr == nil {
		layout.Set(ManeuverOverrides, zeroBlock[ManeuverOverride]())
		layout.Set(ManeuverOverrideNodeSequences, zeroBlock[uint32]())
		return false, nil
	}
	defer fr.Close()

	n, err := ReadVectorSize[ManeuverOverride](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[ManeuverOverride](fr, n); err != nil {
		return false, err
	}
	layout.Set(ManeuverOverrides, MakeBlock[ManeuverOverride](n))

	m, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return false, err
	}
	if err := Skip[uint32](fr, m); err != nil {
		return false, err
	}
	layout.Set(ManeuverOverrideNodeSequences, MakeBlock[uint32](m))
	return true, nil
}
