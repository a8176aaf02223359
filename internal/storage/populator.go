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

// PopulateData walks every input named by paths a second time, in the
// same order PopulateLayout walked them, copying bytes straight from each
// file into the block WriteBlock carves out of base. Each file's length
// prefixes are read again in this pass and decide how many entries are
// copied; the block each copy lands in keeps the size layout recorded
// during sizing, and ReadInto panics if a re-read count would overrun it.
//
// It collects the turns connectivity checksum recorded in the turn file
// and, if a CH or MLD graph is present, cross-checks it against the
// checksum embedded in those files, mirroring the invariant enforced by
// Storage::PopulateData in the original implementation.
func PopulateData(layout *Layout, base []byte, paths InputPaths, features FeatureSet) error {
	if err := populateNames(layout, base, paths.Names); err != nil {
		return err
	}
	if err := populateProperties(layout, base, paths.Properties); err != nil {
		return err
	}
	if err := populateTimestamp(layout, base, paths.Timestamp); err != nil {
		return err
	}
	if err := populateRamIndex(layout, base, paths.Ramindex); err != nil {
		return err
	}
	// FileIndexPath holds only the .osrm.fileIndex path string, zero-padded
	// to its full block size, never the file's content.
	fileIndexBlock := WriteBlock(base, layout, FileIndexPath)
	for i := range fileIndexBlock {
		fileIndexBlock[i] = 0
	}
	copy(fileIndexBlock, []byte(paths.FileIndex))

	if err := populateEdgeBasedNodes(layout, base, paths.EdgeBasedNodes); err != nil {
		return err
	}

	turnsChecksum, err := populateEdges(layout, base, paths.Edges, paths.TurnWeightPenalties, paths.TurnDurationPenalties)
	if err != nil {
		return err
	}

	if err := populateNodeBasedNodes(layout, base, paths.NodeBasedNodes); err != nil {
		return err
	}
	if err := populateGeometry(layout, base, paths.Geometry); err != nil {
		return err
	}
	if err := populateDatasourceNames(layout, base, paths.DatasourceNames); err != nil {
		return err
	}

	if features.HasCH {
		hsgrChecksum, err := populateHSGR(layout, base, paths.HSGR, features.NumCHMetrics)
		if err != nil {
			return err
		}
		if hsgrChecksum != turnsChecksum {
			return &ChecksumMismatchError{
				LHSPath: paths.Edges, LHS: turnsChecksum,
				RHSPath: paths.HSGR, RHS: hsgrChecksum,
			}
		}
	} else {
		zeroHSGR(layout, base)
	}

	if features.HasICD {
		if err := populateICD(layout, base, paths.ICD); err != nil {
			return err
		}
	} else {
		zeroICD(layout, base)
	}

	if features.HasTLD {
		if err := populateTLD(layout, base, paths.TLD); err != nil {
			return err
		}
	} else {
		zeroTLD(layout, base)
	}

	if features.HasPartition {
		if err := populatePartition(layout, base, paths.Partition); err != nil {
			return err
		}
	} else {
		zeroPartition(layout, base)
	}

	if features.HasCells {
		if err := populateCells(layout, base, paths.Cells, features.NumMLDMetrics); err != nil {
			return err
		}
	} else {
		zeroCells(layout, base)
	}

	if features.HasMLD {
		mldgrChecksum, err := populateMLDGR(layout, base, paths.MLDGR)
		if err != nil {
			return err
		}
		if mldgrChecksum != turnsChecksum {
			return &ChecksumMismatchError{
				LHSPath: paths.Edges, LHS: turnsChecksum,
				RHSPath: paths.MLDGR, RHS: mldgrChecksum,
			}
		}
	} else {
		zeroMLDGR(layout, base)
	}

	if features.HasManeuverOverrides {
		if err := populateManeuverOverrides(layout, base, paths.ManeuverOverrides); err != nil {
			return err
		}
	} else {
		zeroManeuverOverrides(layout, base)
	}

	return nil
}

func populateNames(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	dst := WriteBlock(base, layout, NameCharData)
	return ReadInto[byte](fr, dst, n)
}

func populateProperties(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	dst := WriteBlock(base, layout, Properties)
	return fr.ReadRaw(dst)
}

func populateTimestamp(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	dst := WriteBlock(base, layout, Timestamp)
	return ReadInto[byte](fr, dst, n)
}

func populateRamIndex(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	nLeaves, err := ReadVectorSize[RTreeLeaf](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[RTreeLeaf](fr, WriteBlock(base, layout, RSearchTree), nLeaves); err != nil {
		return err
	}

	nLevels, err := ReadVectorSize[RTreeLevelBoundary](fr)
	if err != nil {
		return err
	}
	return ReadInto[RTreeLevelBoundary](fr, WriteBlock(base, layout, RSearchTreeLevels), nLevels)
}

func populateEdgeBasedNodes(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n, err := ReadVectorSize[EdgeBasedNodeData](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[EdgeBasedNodeData](fr, WriteBlock(base, layout, EdgeBasedNodeDataList), n); err != nil {
		return err
	}

	m, err := ReadVectorSize[NodeBasedEdgeAnnotation](fr)
	if err != nil {
		return err
	}
	return ReadInto[NodeBasedEdgeAnnotation](fr, WriteBlock(base, layout, AnnotationDataList), m)
}

func populateEdges(layout *Layout, base []byte, edgesPath, weightPath, durationPath string) (uint32, error) {
	fr, err := requireReader(edgesPath)
	if err != nil {
		return 0, err
	}
	defer fr.Close()

	checksum, err := fr.ReadUint32()
	if err != nil {
		return 0, err
	}

	n, err := ReadVectorSize[TurnInstruction](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[TurnInstruction](fr, WriteBlock(base, layout, TurnInstruction), n); err != nil {
		return 0, err
	}
	if err := ReadInto[EntryClassID](fr, WriteBlock(base, layout, EntryClassID), n); err != nil {
		return 0, err
	}
	if err := ReadInto[DiscreteBearing](fr, WriteBlock(base, layout, PreTurnBearing), n); err != nil {
		return 0, err
	}
	if err := ReadInto[DiscreteBearing](fr, WriteBlock(base, layout, PostTurnBearing), n); err != nil {
		return 0, err
	}
	if err := ReadInto[LaneDataID](fr, WriteBlock(base, layout, LaneDataID), n); err != nil {
		return 0, err
	}

	m, err := ReadVectorSize[EntryClass](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[EntryClass](fr, WriteBlock(base, layout, EntryClass), m); err != nil {
		return 0, err
	}

	wfr, err := requireReader(weightPath)
	if err != nil {
		return 0, err
	}
	defer wfr.Close()
	wn, err := ReadVectorSize[EdgeWeight](wfr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[EdgeWeight](wfr, WriteBlock(base, layout, TurnWeightPenalties), wn); err != nil {
		return 0, err
	}

	dfr, err := requireReader(durationPath)
	if err != nil {
		return 0, err
	}
	defer dfr.Close()
	dn, err := ReadVectorSize[EdgeWeight](dfr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[EdgeWeight](dfr, WriteBlock(base, layout, TurnDurationPenalties), dn); err != nil {
		return 0, err
	}

	return checksum, nil
}

func populateNodeBasedNodes(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n, err := ReadVectorSize[Coordinate](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[Coordinate](fr, WriteBlock(base, layout, CoordinateList), n); err != nil {
		return err
	}
	return ReadInto[OSMNodeID](fr, WriteBlock(base, layout, OSMNodeIDList), n)
}

func populateGeometry(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	nIndex, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, GeometriesIndex), nIndex); err != nil {
		return err
	}

	nNodes, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, GeometriesNodeList), nNodes); err != nil {
		return err
	}

	fwdW, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, GeometriesFwdWeightList), fwdW); err != nil {
		return err
	}

	revW, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, GeometriesRevWeightList), revW); err != nil {
		return err
	}

	fwdD, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, GeometriesFwdDurationList), fwdD); err != nil {
		return err
	}

	revD, err := ReadVectorSize[EdgeWeight](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, GeometriesRevDurationList), revD); err != nil {
		return err
	}

	fwdDS, err := ReadVectorSize[uint8](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint8](fr, WriteBlock(base, layout, GeometriesFwdDatasourcesList), fwdDS); err != nil {
		return err
	}

	revDS, err := ReadVectorSize[uint8](fr)
	if err != nil {
		return err
	}
	return ReadInto[uint8](fr, WriteBlock(base, layout, GeometriesRevDatasourcesList), revDS)
}

func populateDatasourceNames(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()
	n, err := fr.ReadCount()
	if err != nil {
		return err
	}
	return ReadInto[byte](fr, WriteBlock(base, layout, DatasourcesNames), n)
}

func populateHSGR(layout *Layout, base []byte, path string, numMetrics int) (uint32, error) {
	fr, err := requireReader(path)
	if err != nil {
		return 0, err
	}
	defer fr.Close()

	checksum, err := fr.ReadUint32()
	if err != nil {
		return 0, err
	}
	copy(WriteBlock(base, layout, HSGRChecksum), uint32ToBytes(checksum))

	if _, err := fr.ReadUint32(); err != nil { // numMetrics, already known from sizing
		return 0, err
	}

	n, err := ReadVectorSize[CHGraphNode](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[CHGraphNode](fr, WriteBlock(base, layout, CHGraphNodeList), n); err != nil {
		return 0, err
	}

	m, err := ReadVectorSize[CHGraphEdge](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[CHGraphEdge](fr, WriteBlock(base, layout, CHGraphEdgeList), m); err != nil {
		return 0, err
	}

	for i := 0; i < numMetrics; i++ {
		if err := ReadInto[uint8](fr, WriteBlock(base, layout, CHEdgeFilter(i)), m); err != nil {
			return 0, err
		}
	}
	for i := numMetrics; i < MaxMetrics; i++ {
		WriteBlock(base, layout, CHEdgeFilter(i))
	}
	return checksum, nil
}

func zeroHSGR(layout *Layout, base []byte) {
	WriteBlock(base, layout, HSGRChecksum)
	WriteBlock(base, layout, CHGraphNodeList)
	WriteBlock(base, layout, CHGraphEdgeList)
	for i := 0; i < MaxMetrics; i++ {
		WriteBlock(base, layout, CHEdgeFilter(i))
	}
}

func populateICD(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n1, err := ReadVectorSize[BearingClassID](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[BearingClassID](fr, WriteBlock(base, layout, BearingClassID), n1); err != nil {
		return err
	}

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, BearingOffsets), n2); err != nil {
		return err
	}

	n3, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, BearingBlocks), n3); err != nil {
		return err
	}

	n4, err := ReadVectorSize[DiscreteBearing](fr)
	if err != nil {
		return err
	}
	return ReadInto[DiscreteBearing](fr, WriteBlock(base, layout, BearingValues), n4)
}

func zeroICD(layout *Layout, base []byte) {
	WriteBlock(base, layout, BearingClassID)
	WriteBlock(base, layout, BearingOffsets)
	WriteBlock(base, layout, BearingBlocks)
	WriteBlock(base, layout, BearingValues)
}

func populateTLD(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n1, err := ReadVectorSize[TurnLaneType](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[TurnLaneType](fr, WriteBlock(base, layout, TurnLaneData), n1); err != nil {
		return err
	}

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, LaneDescriptionOffsets), n2); err != nil {
		return err
	}

	n3, err := fr.ReadCount()
	if err != nil {
		return err
	}
	return ReadInto[byte](fr, WriteBlock(base, layout, LaneDescriptionMasks), n3)
}

func zeroTLD(layout *Layout, base []byte) {
	WriteBlock(base, layout, TurnLaneData)
	WriteBlock(base, layout, LaneDescriptionOffsets)
	WriteBlock(base, layout, LaneDescriptionMasks)
}

func populatePartition(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n0, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, MLDLevelData), n0); err != nil {
		return err
	}

	n1, err := ReadVectorSize[MLDPartitionID](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[MLDPartitionID](fr, WriteBlock(base, layout, MLDPartition), n1); err != nil {
		return err
	}

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	return ReadInto[uint32](fr, WriteBlock(base, layout, MLDCellToChildren), n2)
}

func zeroPartition(layout *Layout, base []byte) {
	WriteBlock(base, layout, MLDLevelData)
	WriteBlock(base, layout, MLDPartition)
	WriteBlock(base, layout, MLDCellToChildren)
}

func populateCells(layout *Layout, base []byte, path string, numMetrics int) error {
	if numMetrics < 0 {
		zeroCells(layout, base)
		return nil
	}
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	if _, err := fr.ReadUint32(); err != nil { // numMetrics, already known from sizing
		return err
	}

	n1, err := ReadVectorSize[MLDCellData](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[MLDCellData](fr, WriteBlock(base, layout, MLDCells), n1); err != nil {
		return err
	}

	n2, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, MLDCellLevelOffsets), n2); err != nil {
		return err
	}

	n3, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, MLDCellSourceBoundary), n3); err != nil {
		return err
	}

	n4, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, MLDCellDestinationBoundary), n4); err != nil {
		return err
	}

	for i := 0; i < numMetrics; i++ {
		w, err := ReadVectorSize[EdgeWeight](fr)
		if err != nil {
			return err
		}
		if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, MLDCellWeights(i)), w); err != nil {
			return err
		}

		d, err := ReadVectorSize[EdgeWeight](fr)
		if err != nil {
			return err
		}
		if err := ReadInto[EdgeWeight](fr, WriteBlock(base, layout, MLDCellDurations(i)), d); err != nil {
			return err
		}
	}
	for i := numMetrics; i < MaxMetrics; i++ {
		WriteBlock(base, layout, MLDCellWeights(i))
		WriteBlock(base, layout, MLDCellDurations(i))
	}
	return nil
}

func zeroCells(layout *Layout, base []byte) {
	WriteBlock(base, layout, MLDCells)
	WriteBlock(base, layout, MLDCellLevelOffsets)
	WriteBlock(base, layout, MLDCellSourceBoundary)
	WriteBlock(base, layout, MLDCellDestinationBoundary)
	for i := 0; i < MaxMetrics; i++ {
		WriteBlock(base, layout, MLDCellWeights(i))
		WriteBlock(base, layout, MLDCellDurations(i))
	}
}

func populateMLDGR(layout *Layout, base []byte, path string) (uint32, error) {
	fr, err := requireReader(path)
	if err != nil {
		return 0, err
	}
	defer fr.Close()

	checksum, err := fr.ReadUint32()
	if err != nil {
		return 0, err
	}

	n, err := ReadVectorSize[MLDGraphNode](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[MLDGraphNode](fr, WriteBlock(base, layout, MLDGraphNodeList), n); err != nil {
		return 0, err
	}

	m, err := ReadVectorSize[MLDGraphEdge](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[MLDGraphEdge](fr, WriteBlock(base, layout, MLDGraphEdgeList), m); err != nil {
		return 0, err
	}

	p, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return 0, err
	}
	if err := ReadInto[uint32](fr, WriteBlock(base, layout, MLDGraphNodeToOffset), p); err != nil {
		return 0, err
	}
	return checksum, nil
}

func zeroMLDGR(layout *Layout, base []byte) {
	WriteBlock(base, layout, MLDGraphNodeList)
	WriteBlock(base, layout, MLDGraphEdgeList)
	WriteBlock(base, layout, MLDGraphNodeToOffset)
}

func populateManeuverOverrides(layout *Layout, base []byte, path string) error {
	fr, err := requireReader(path)
	if err != nil {
		return err
	}
	defer fr.Close()

	n, err := ReadVectorSize[ManeuverOverride](fr)
	if err != nil {
		return err
	}
	if err := ReadInto[ManeuverOverride](fr, WriteBlock(base, layout, ManeuverOverrides), n); err != nil {
		return err
	}

	m, err := ReadVectorSize[uint32](fr)
	if err != nil {
		return err
	}
	return ReadInto[uint32](fr, WriteBlock(base, layout, ManeuverOverrideNodeSequences), m)
}

func zeroManeuverOverrides(layout *Layout, base []byte) {
	WriteBlock(base, layout, ManeuverOverrides)
	WriteBlock(base, layout, ManeuverOverrideNodeSequences)
}

func uint32ToBytes(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
