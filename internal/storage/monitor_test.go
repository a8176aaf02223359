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
	"testing"
	"time"
)

func TestMonitorCreateFailsIfAlreadyExists(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	defer m.Close()

	if _, err := CreateMonitor(); err == nil {
		t.Fatalf("expected second CreateMonitor to fail, got nil error")
	}
}

func TestOpenMonitorCreatesWhenAbsent(t *testing.T) {
	withTestRegionDir(t)

	m, err := OpenMonitor()
	if err != nil {
		t.Fatalf("OpenMonitor: %v", err)
	}
	defer m.Close()

	region, timestamp := m.Load()
	if region != RegionNone {
		t.Fatalf("fresh monitor region = %v, want RegionNone", region)
	}
	if timestamp != 0 {
		t.Fatalf("fresh monitor timestamp = %d, want 0", timestamp)
	}
}

func TestMonitorStoreLoadSequence(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	defer m.Close()

	before := m.Sequence()
	m.Store(Region1, 42)

	region, timestamp := m.Load()
	if region != Region1 {
		t.Fatalf("Load region = %v, want Region1", region)
	}
	if timestamp != 42 {
		t.Fatalf("Load timestamp = %d, want 42", timestamp)
	}
	if after := m.Sequence(); after != before+1 {
		t.Fatalf("Sequence = %d, want %d", after, before+1)
	}
}

func TestMonitorWaitUnblocksOnStore(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	defer m.Close()

	lastSeq := m.Sequence()
	done := make(chan uint32, 1)
	errs := make(chan error, 1)
	go func() {
		seq, err := m.Wait(context.Background(), lastSeq)
		errs <- err
		done <- seq
	}()

	time.Sleep(50 * time.Millisecond)
	m.Store(Region2, 7)

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Wait did not unblock after Store")
	}
	if seq := <-done; seq == lastSeq {
		t.Fatalf("Wait returned stale sequence %d", seq)
	}
}

func TestMonitorWaitRespectsContextCancellation(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = m.Wait(ctx, m.Sequence())
	if err == nil {
		t.Fatalf("expected Wait to return an error on context cancellation")
	}
}

func TestMonitorLockUnlock(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if err := m.Lock(ctx, 5); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	locked := make(chan struct{})
	unlocked := make(chan error, 1)
	go func() {
		close(locked)
		unlocked <- m.Lock(ctx, 5)
	}()

	<-locked
	time.Sleep(50 * time.Millisecond)
	m.Unlock()

	select {
	case err := <-unlocked:
		if err != nil {
			t.Fatalf("second Lock: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second Lock never acquired after Unlock")
	}
	m.Unlock()
}

func TestMonitorLockTimesOutAndRemoveRecovers(t *testing.T) {
	withTestRegionDir(t)

	m, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}

	ctx := context.Background()
	if err := m.Lock(ctx, 5); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// Simulate a publisher that crashed while holding the lock: never
	// Unlock it, and expect a contending Lock to observe MonitorStuckError.
	err = m.Lock(ctx, 1)
	if err == nil {
		t.Fatalf("expected Lock to time out, got nil error")
	}
	if _, ok := err.(*MonitorStuckError); !ok {
		t.Fatalf("expected *MonitorStuckError, got %T: %v", err, err)
	}

	// Recovery destroys the stuck monitor outright and recreates it fresh,
	// rather than clearing its lock word in place.
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	fresh, err := CreateMonitor()
	if err != nil {
		t.Fatalf("CreateMonitor after Remove: %v", err)
	}
	defer fresh.Close()

	region, timestamp := fresh.Load()
	if region != RegionNone {
		t.Fatalf("recreated monitor region = %v, want RegionNone", region)
	}
	if timestamp != 0 {
		t.Fatalf("recreated monitor timestamp = %d, want 0", timestamp)
	}

	if err := fresh.Lock(ctx, 5); err != nil {
		t.Fatalf("Lock on recreated monitor: %v", err)
	}
	fresh.Unlock()
}
