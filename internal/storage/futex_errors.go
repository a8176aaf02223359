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

import "errors"

// ErrFutexTimeout is returned by futexWaitTimeout when the wait expires
// before the watched value changes.
var ErrFutexTimeout = errors.New("futex timeout")

// ErrFutexUnsupported is returned by the futex primitives on platforms
// without a Linux-compatible futex syscall. The Monitor treats it as a
// cue to busy-poll instead of blocking on the syscall.
var ErrFutexUnsupported = errors.New("futex operations not supported on this platform")
