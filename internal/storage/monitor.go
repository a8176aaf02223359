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
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// monitorSegmentName is the sidecar shared memory object that holds the
// currently-published region and its timestamp. Named after
// SharedDataTimestamp::name in the original implementation.
const monitorSegmentName = "osrm-region"

// monitor cell layout, 16 bytes, all fields accessed atomically:
//
//	[0:4]   region    (RegionID, as uint32)
//	[4:8]   timestamp (monotonically increasing publish counter)
//	[8:12]  sequence  (bumped on every Store; futex word readers wait on)
//	[12:16] lock      (0 = free, 1 = held; the "Monitor mutex")
const monitorCellSize = 16

const (
	monitorOffRegion    = 0
	monitorOffTimestamp = 4
	monitorOffSequence  = 8
	monitorOffLock      = 12
)

// Monitor is the process-shared cell that makes the currently published
// region discoverable and lets readers block until the next publish,
// mirroring SharedMonitor<SharedDataTimestamp> in the original
// implementation. Its mutex+condvar pair is backed by a Linux futex
// (futex_linux.go), adapted from the teacher's shm_futex_linux.go, with a
// sleep-poll fallback (futex_stub.go) on platforms without one.
type Monitor struct {
	file *os.File
	mem  []byte
}

func monitorPath() string {
	if testRegionDir != "" {
		return filepath.Join(testRegionDir, monitorSegmentName)
	}
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", monitorSegmentName)
	}
	return filepath.Join(os.TempDir(), monitorSegmentName)
}

// CreateMonitor allocates the monitor cell, initialized to RegionNone /
// timestamp 0. It fails if the cell already exists.
func CreateMonitor() (*Monitor, error) {
	path := monitorPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, &RegionAllocationFailedError{Bytes: monitorCellSize, Cause: err}
	}
	if err := f.Truncate(monitorCellSize); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &RegionAllocationFailedError{Bytes: monitorCellSize, Cause: err}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, monitorCellSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, &RegionAllocationFailedError{Bytes: monitorCellSize, Cause: err}
	}
	return &Monitor{file: f, mem: mem}, nil
}

// OpenMonitor maps the existing monitor cell, creating it initialized to
// RegionNone / timestamp 0 if it does not already exist. This mirrors the
// original implementation's behavior of treating "no monitor file yet" the
// same as "nothing published yet" rather than as an error.
func OpenMonitor() (*Monitor, error) {
	path := monitorPath()
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if os.IsNotExist(err) {
		created, cerr := CreateMonitor()
		if cerr != nil {
			return nil, cerr
		}
		return created, nil
	}
	if err != nil {
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, monitorCellSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	return &Monitor{file: f, mem: mem}, nil
}

// Close unmaps the monitor cell. Close does not remove the cell itself: it
// outlives any single publisher run, the same way the original
// implementation's SharedMonitor segment persists across osrm-datastore
// invocations. Only Remove deletes it.
func (m *Monitor) Close() error {
	var err error
	if m.mem != nil {
		err = unix.Munmap(m.mem)
		m.mem = nil
	}
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (m *Monitor) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[off]))
}

// Load returns the currently published region and its timestamp.
func (m *Monitor) Load() (RegionID, uint32) {
	region := RegionID(atomic.LoadUint32(m.word(monitorOffRegion)))
	timestamp := atomic.LoadUint32(m.word(monitorOffTimestamp))
	return region, timestamp
}

// Sequence returns the current publish sequence number, for use as the
// baseline argument to Wait.
func (m *Monitor) Sequence() uint32 {
	return atomic.LoadUint32(m.word(monitorOffSequence))
}

// Store publishes region as the new current region, bumps the sequence,
// and wakes any readers blocked in Wait. Callers must hold the Monitor
// mutex (see Lock/Unlock) while calling Store, exactly as the original
// implementation takes its scoped_lock before mutating SharedDataTimestamp.
func (m *Monitor) Store(region RegionID, timestamp uint32) {
	atomic.StoreUint32(m.word(monitorOffRegion), uint32(region))
	atomic.StoreUint32(m.word(monitorOffTimestamp), timestamp)
	atomic.AddUint32(m.word(monitorOffSequence), 1)
	futexWake(m.word(monitorOffSequence), 1<<30)
}

// Wait blocks until the sequence number differs from lastSeq, ctx is done,
// or (on platforms without a real futex) a short poll interval elapses and
// is re-checked. It returns the observed sequence number.
func (m *Monitor) Wait(ctx context.Context, lastSeq uint32) (uint32, error) {
	seqWord := m.word(monitorOffSequence)
	for {
		cur := atomic.LoadUint32(seqWord)
		if cur != lastSeq {
			return cur, nil
		}
		select {
		case <-ctx.Done():
			return cur, ctx.Err()
		default:
		}

		const pollTimeoutNs = int64(200 * time.Millisecond)
		err := futexWaitTimeout(seqWord, lastSeq, pollTimeoutNs)
		if err != nil && err != ErrFutexTimeout && err != ErrFutexUnsupported {
			return atomic.LoadUint32(seqWord), err
		}
		if err == ErrFutexUnsupported {
			time.Sleep(time.Duration(pollTimeoutNs))
		}
	}
}

// Lock acquires the Monitor mutex with a bounded wait: the original
// implementation's Storage::Run retries for up to maxWaitSeconds before
// concluding the lock is stuck (another publisher crashed while holding
// it) and forcibly recovering it. Lock returns a MonitorStuckError in that
// case rather than blocking forever; the caller decides whether to force
// the lock.
func (m *Monitor) Lock(ctx context.Context, maxWaitSeconds int) error {
	lockWord := m.word(monitorOffLock)
	deadline := time.Now().Add(time.Duration(maxWaitSeconds) * time.Second)
	for {
		if casUint32(lockWord, 0, 1) {
			return nil
		}
		if time.Now().After(deadline) {
			return &MonitorStuckError{AfterSeconds: maxWaitSeconds}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		futexWaitTimeout(lockWord, 1, int64(100*time.Millisecond))
	}
}

// Unlock releases the Monitor mutex and wakes one waiter blocked in Lock.
func (m *Monitor) Unlock() {
	atomic.StoreUint32(m.word(monitorOffLock), 0)
	futexWake(m.word(monitorOffLock), 1)
}

// Remove destroys the named monitor cell: it unmaps and deletes the
// backing file. This is the recovery action a publisher takes when Lock
// reports a MonitorStuckError (the previous holder crashed mid-swap and
// will never release it) — the original implementation's equivalent is
// destroying and recreating the boost interprocess named mutex in place.
// The caller must call CreateMonitor again to resume publishing; the
// monitor this method is called on must not be used afterward.
func (m *Monitor) Remove() error {
	path := monitorPath()
	if err := m.Close(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &IOFailureError{Path: path, Cause: err}
	}
	return nil
}

func casUint32(addr *uint32, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(addr, old, new)
}
