//go:build unix

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
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DatastoreLock serializes publisher runs across processes: only one
// osrm-datastore invocation may be deciding which region to write and
// swapping the Monitor at a time. It is advisory, held for the lifetime
// of one Publisher.Run call, and released automatically if the holding
// process dies (the kernel drops flock state on process exit).
type DatastoreLock struct {
	file *os.File
}

// lockPath always lives under os.TempDir rather than /dev/shm: unlike the
// regions and the monitor cell, the lock file is never mapped into memory,
// so it gains nothing from tmpfs and can outlive a reboot for debugging.
func lockPath() string {
	return filepath.Join(os.TempDir(), "osrm-datastore.lock")
}

// AcquireDatastoreLock blocks until it holds the exclusive publisher lock.
func AcquireDatastoreLock() (*DatastoreLock, error) {
	path := lockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	return &DatastoreLock{file: f}, nil
}

// TryAcquireDatastoreLock attempts to acquire the lock without blocking,
// returning (nil, nil) if it is already held elsewhere.
func TryAcquireDatastoreLock() (*DatastoreLock, error) {
	path := lockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	return &DatastoreLock{file: f}, nil
}

// Release drops the lock and closes the backing file descriptor.
func (l *DatastoreLock) Release() error {
	if l.file == nil {
		return nil
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
