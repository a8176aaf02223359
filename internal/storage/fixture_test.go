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
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// fixtureWriter builds a synthetic .osrm.* input file: a fingerprint
// followed by a sequence of length-prefixed vectors, in exactly the
// shape FileReader expects.
type fixtureWriter struct {
	t *testing.T
	w *bufio.Writer
	f *os.File
}

func newFixture(t *testing.T, path string) *fixtureWriter {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture %s: %v", path, err)
	}
	fw := &fixtureWriter{t: t, w: bufio.NewWriter(f), f: f}
	if _, err := fw.w.Write(expectedFingerprint[:]); err != nil {
		t.Fatalf("writing fingerprint: %v", err)
	}
	return fw
}

func (fw *fixtureWriter) u32(v uint32) *fixtureWriter {
	if err := binary.Write(fw.w, binary.LittleEndian, v); err != nil {
		fw.t.Fatalf("writing uint32: %v", err)
	}
	return fw
}

func (fw *fixtureWriter) count(n uint64) *fixtureWriter {
	if err := binary.Write(fw.w, binary.LittleEndian, n); err != nil {
		fw.t.Fatalf("writing count: %v", err)
	}
	return fw
}

// vector writes a length prefix followed by data, data must be a slice of
// a fixed-size type binary.Write understands directly.
func (fw *fixtureWriter) vector(n uint64, data any) *fixtureWriter {
	fw.count(n)
	if err := binary.Write(fw.w, binary.LittleEndian, data); err != nil {
		fw.t.Fatalf("writing vector payload: %v", err)
	}
	return fw
}

func (fw *fixtureWriter) close() {
	fw.t.Helper()
	if err := fw.w.Flush(); err != nil {
		fw.t.Fatalf("flushing fixture: %v", err)
	}
	if err := fw.f.Close(); err != nil {
		fw.t.Fatalf("closing fixture: %v", err)
	}
}

// buildMinimalInputs writes every required .osrm.* input (no CH, MLD,
// intersection class, turn lane, or maneuver override data) under dir
// using base as the path prefix, and returns the resulting InputPaths.
func buildMinimalInputs(t *testing.T, dir, base string) InputPaths {
	t.Helper()
	paths := InputPathsFromBase(filepath.Join(dir, base))

	names := newFixture(t, paths.Names)
	names.count(8)
	if _, err := names.w.Write([]byte("berlin12")); err != nil {
		t.Fatalf("writing name bytes: %v", err)
	}
	names.close()

	props := newFixture(t, paths.Properties)
	if err := binary.Write(props.w, binary.LittleEndian, EngineProperties{
		UseTurnRestrictions: 1,
		MaxTurnWeight:       1500,
	}); err != nil {
		t.Fatalf("writing properties: %v", err)
	}
	props.close()

	ts := newFixture(t, paths.Timestamp)
	ts.count(6)
	if _, err := ts.w.Write([]byte("v1.2.3")); err != nil {
		t.Fatalf("writing timestamp bytes: %v", err)
	}
	ts.close()

	ram := newFixture(t, paths.Ramindex)
	ram.vector(2, []RTreeLeaf{
		{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10, ObjectID: 1},
		{MinLon: 10, MinLat: 10, MaxLon: 20, MaxLat: 20, ObjectID: 2},
	})
	ram.vector(1, []RTreeLevelBoundary{{FirstChild: 0}})
	ram.close()

	ebg := newFixture(t, paths.EdgeBasedNodes)
	ebg.vector(3, []EdgeBasedNodeData{{GeometryID: 0}, {GeometryID: 1}, {GeometryID: 2}})
	ebg.vector(3, []NodeBasedEdgeAnnotation{{NameID: 0}, {NameID: 1}, {NameID: 2}})
	ebg.close()

	const checksum = uint32(0xC0FFEE)
	edges := newFixture(t, paths.Edges)
	edges.u32(checksum)
	edges.vector(3, []TurnInstruction{{Type: 1}, {Type: 2}, {Type: 3}})
	if err := binary.Write(edges.w, binary.LittleEndian, []EntryClassID{0, 1, 2}); err != nil {
		t.Fatalf("writing entry class ids: %v", err)
	}
	if err := binary.Write(edges.w, binary.LittleEndian, []DiscreteBearing{0, 90, 180}); err != nil {
		t.Fatalf("writing pre-turn bearings: %v", err)
	}
	if err := binary.Write(edges.w, binary.LittleEndian, []DiscreteBearing{10, 100, 190}); err != nil {
		t.Fatalf("writing post-turn bearings: %v", err)
	}
	if err := binary.Write(edges.w, binary.LittleEndian, []LaneDataID{0, 0, 1}); err != nil {
		t.Fatalf("writing lane data ids: %v", err)
	}
	edges.vector(2, []EntryClass{0x1, 0x3})
	edges.close()

	weights := newFixture(t, paths.TurnWeightPenalties)
	weights.vector(3, []EdgeWeight{10, 20, 30})
	weights.close()

	durations := newFixture(t, paths.TurnDurationPenalties)
	durations.vector(3, []EdgeWeight{1, 2, 3})
	durations.close()

	nbg := newFixture(t, paths.NodeBasedNodes)
	nbg.vector(2, []Coordinate{{Lon: 130000000, Lat: 520000000}, {Lon: 130100000, Lat: 520100000}})
	if err := binary.Write(nbg.w, binary.LittleEndian, []OSMNodeID{100, 200}); err != nil {
		t.Fatalf("writing osm node ids: %v", err)
	}
	nbg.close()

	geom := newFixture(t, paths.Geometry)
	geom.vector(2, []uint32{0, 2})
	geom.vector(2, []uint32{1, 2})
	geom.vector(2, []EdgeWeight{5, 6})
	geom.vector(2, []EdgeWeight{5, 6})
	geom.vector(2, []EdgeWeight{1, 1})
	geom.vector(2, []EdgeWeight{1, 1})
	geom.vector(2, []uint8{0, 0})
	geom.vector(2, []uint8{0, 0})
	geom.close()

	ds := newFixture(t, paths.DatasourceNames)
	ds.count(7)
	if _, err := ds.w.Write([]byte("default")); err != nil {
		t.Fatalf("writing datasource name bytes: %v", err)
	}
	ds.close()

	return paths
}
