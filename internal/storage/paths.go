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

import "path/filepath"

// InputPaths names every .osrm.* input file a publish run may read. The
// CH graph, MLD graph/partition/cells, intersection class data, turn lane
// data, and maneuver overrides are all optional: a zero-valued path means
// "this feature was not built", and the corresponding blocks are sized to
// zero rather than the run failing.
type InputPaths struct {
	Names                 string // .osrm.names
	Properties            string // .osrm.properties
	Timestamp             string // .osrm.timestamp
	Ramindex              string // .osrm.ramIndex
	FileIndex             string // .osrm.fileIndex (path only, content stays on disk)
	EdgeBasedNodes        string // .osrm.ebg_nodes
	Edges                 string // .osrm.edges (turn data + connectivity checksum)
	NodeBasedNodes        string // .osrm.nbg_nodes
	Geometry              string // .osrm.geometry
	DatasourceNames       string // .osrm.datasource_names
	HSGR                  string // .osrm.hsgr (optional)
	ICD                   string // .osrm.icd (optional, intersection class data)
	TLD                   string // .osrm.tld (optional, turn lane data)
	TurnWeightPenalties   string // .osrm.turn_weight_penalties
	TurnDurationPenalties string // .osrm.turn_duration_penalties
	Partition             string // .osrm.partition (optional, MLD)
	Cells                 string // .osrm.cells (optional, MLD)
	MLDGR                 string // .osrm.mldgr (optional, MLD overlay graph)
	ManeuverOverrides     string // .osrm.maneuver_overrides (optional)
}

// InputPathsFromBase derives the full InputPaths set from a single base
// path the way osrm-datastore's --base / positional argument does: every
// member is base with its fixed suffix appended.
func InputPathsFromBase(base string) InputPaths {
	suffix := func(s string) string { return base + s }
	return InputPaths{
		Names:                 suffix(".osrm.names"),
		Properties:            suffix(".osrm.properties"),
		Timestamp:             suffix(".osrm.timestamp"),
		Ramindex:              suffix(".osrm.ramIndex"),
		FileIndex:             suffix(".osrm.fileIndex"),
		EdgeBasedNodes:        suffix(".osrm.ebg_nodes"),
		Edges:                 suffix(".osrm.edges"),
		NodeBasedNodes:        suffix(".osrm.nbg_nodes"),
		Geometry:              suffix(".osrm.geometry"),
		DatasourceNames:       suffix(".osrm.datasource_names"),
		HSGR:                  suffix(".osrm.hsgr"),
		ICD:                   suffix(".osrm.icd"),
		TLD:                   suffix(".osrm.tld"),
		TurnWeightPenalties:   suffix(".osrm.turn_weight_penalties"),
		TurnDurationPenalties: suffix(".osrm.turn_duration_penalties"),
		Partition:             suffix(".osrm.partition"),
		Cells:                 suffix(".osrm.cells"),
		MLDGR:                 suffix(".osrm.mldgr"),
		ManeuverOverrides:     suffix(".osrm.maneuver_overrides"),
	}
}

func baseName(path string) string {
	return filepath.Base(path)
}
