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

// Package storage publishes a routing engine's precomputed on-disk
// artifacts into a process-wide shared memory region so that many
// query-serving processes can map them read-only at zero copy cost.
//
// The package builds a fixed, contiguous memory layout from a closed
// enumeration of typed blocks (graphs, geometries, an R-tree index, turn
// metadata, the multi-level partition, cell metrics), bracketed by
// corruption-detecting canaries, and publishes it through a double-buffered
// region swap: two named shared memory segments and a small named monitor
// cell that tells readers which of the two currently holds the live
// snapshot. A publish invocation sizes the next region, populates it from
// disk, flips the monitor, and waits for the previous region's last
// attached reader to detach before reclaiming it.
package storage
