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

import "testing"

func TestStampCanaryThenCanaryAlive(t *testing.T) {
	buf := make([]byte, 4)
	stampCanary(buf)
	if !canaryAlive(buf) {
		t.Fatalf("freshly stamped canary reported dead")
	}
}

func TestCanaryAliveRejectsShortOrWrongBytes(t *testing.T) {
	if canaryAlive([]byte{'O', 'R'}) {
		t.Fatalf("short buffer reported alive")
	}
	wrong := []byte{'X', 'R', 'S', 'M'}
	if canaryAlive(wrong) {
		t.Fatalf("mismatched buffer reported alive")
	}
}
