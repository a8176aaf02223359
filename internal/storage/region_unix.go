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
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

func casUint64(mem []byte, old, new uint64) bool {
	addr := (*uint64)(unsafe.Pointer(&mem[0]))
	return atomic.CompareAndSwapUint64(addr, old, new)
}

// CreateRegion allocates a brand new shared memory segment of at least size
// bytes, failing if one already exists under this id. Adapted from the
// teacher's CreateSegment in shm_mmap_unix.go: O_CREATE|O_EXCL guarantees
// the caller is the sole creator, ftruncate sets the backing size, and the
// mapping is MAP_SHARED so every later opener sees the same bytes.
func CreateRegion(id RegionID, size uint64) (*Region, error) {
	path := regionPath(id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, &RegionAllocationFailedError{Bytes: size, Cause: err}
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, &RegionAllocationFailedError{Bytes: size, Cause: err}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, &RegionAllocationFailedError{Bytes: size, Cause: err}
	}

	if err := createAttachCounter(id); err != nil {
		unix.Munmap(mem)
		f.Close()
		os.Remove(path)
		return nil, &RegionAllocationFailedError{Bytes: size, Cause: err}
	}

	return &Region{file: f, mem: mem, path: path, id: id}, nil
}

// OpenRegion maps an existing region read/write. It returns ErrRegionAbsent
// when no segment is currently published under id.
func OpenRegion(id RegionID) (*Region, error) {
	path := regionPath(id)

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRegionAbsent
		}
		return nil, &IOFailureError{Path: path, Cause: err}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	size := fi.Size()
	if size == 0 {
		f.Close()
		return nil, ErrRegionAbsent
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &IOFailureError{Path: path, Cause: err}
	}

	return &Region{file: f, mem: mem, path: path, id: id}, nil
}

// RegionExists reports whether a segment is currently published under id.
func RegionExists(id RegionID) bool {
	_, err := os.Stat(regionPath(id))
	return err == nil
}

// Close unmaps the region and releases its file descriptor. It does not
// remove the underlying segment; use RemoveRegion for that.
func (r *Region) Close() error {
	var err error
	if r.mem != nil {
		err = unix.Munmap(r.mem)
		r.mem = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// RemoveRegion deletes a region's backing file and its attachment sidecar.
// It is safe to call on a region nothing currently has mapped; it is not
// safe to call while any client may still be attached (see WaitForDetach).
func RemoveRegion(id RegionID) error {
	path := regionPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &IOFailureError{Path: path, Cause: err}
	}
	acPath := attachCounterPath(id)
	if err := os.Remove(acPath); err != nil && !os.IsNotExist(err) {
		return &IOFailureError{Path: acPath, Cause: err}
	}
	return nil
}

// attachCounter is a tiny sidecar shared memory segment, separate from the
// region itself, holding a single atomically-accessed uint64 count of
// clients currently attached to the region it shadows. The region's own
// byte 0 is reserved for the Layout descriptor (the published ABI), so
// attachment bookkeeping — which has no equivalent in this module's
// process model, unlike the SysV shmid nattch counter the original
// implementation relies on — lives in its own file instead of stealing
// space from the payload.
type attachCounter struct {
	file *os.File
	mem  []byte
}

const attachCounterSize = 8

func createAttachCounter(id RegionID) error {
	path := attachCounterPath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Truncate(attachCounterSize); err != nil {
		return err
	}
	return nil
}

func openAttachCounter(id RegionID) (*attachCounter, error) {
	path := attachCounterPath(id)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, attachCounterSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &attachCounter{file: f, mem: mem}, nil
}

func (c *attachCounter) close() error {
	var err error
	if c.mem != nil {
		err = unix.Munmap(c.mem)
		c.mem = nil
	}
	if c.file != nil {
		if cerr := c.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (c *attachCounter) load() uint64 {
	addr := (*uint64)(unsafe.Pointer(&c.mem[0]))
	return atomic.LoadUint64(addr)
}

func (c *attachCounter) add(delta int64) uint64 {
	for {
		cur := c.load()
		next := uint64(int64(cur) + delta)
		if casUint64(c.mem, cur, next) {
			return next
		}
	}
}

// Attach records that a client has mapped region id. Call Detach exactly
// once for every successful Attach.
func Attach(id RegionID) error {
	c, err := openAttachCounter(id)
	if err != nil {
		return &IOFailureError{Path: attachCounterPath(id), Cause: err}
	}
	defer c.close()
	c.add(1)
	return nil
}

// Detach records that a client has unmapped region id.
func Detach(id RegionID) error {
	c, err := openAttachCounter(id)
	if err != nil {
		return &IOFailureError{Path: attachCounterPath(id), Cause: err}
	}
	defer c.close()
	c.add(-1)
	return nil
}

// WaitForDetach blocks, polling on a ticker the way the teacher's
// WaitForClient/WaitForServer do in handshake.go, until no client remains
// attached to region id or ctx is done. It returns nil immediately if the
// region's attach counter sidecar no longer exists (the region was already
// fully torn down).
func WaitForDetach(ctx context.Context, id RegionID, pollInterval time.Duration) error {
	c, err := openAttachCounter(id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &IOFailureError{Path: attachCounterPath(id), Cause: err}
	}
	defer c.close()

	if c.load() == 0 {
		return nil
	}
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for clients to detach from %s: %w", id, ctx.Err())
		case <-ticker.C:
			if c.load() == 0 {
				return nil
			}
		}
	}
}
