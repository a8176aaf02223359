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

// canary is stamped at the start and end of every block as a sanity check
// against stray writes, off-by-one sizing bugs, and mismatched
// publisher/client block enumerations. It is not a security mechanism.
var canary = [4]byte{'O', 'R', 'S', 'M'}

const canarySize = uint64(len(canary))

func stampCanary(b []byte) {
	copy(b, canary[:])
}

func canaryAlive(b []byte) bool {
	if len(b) < len(canary) {
		return false
	}
	for i := range canary {
		if b[i] != canary[i] {
			return false
		}
	}
	return true
}
