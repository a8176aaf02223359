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
	"io"
	"os"
	"unsafe"
)

// Fingerprint is the 4-byte magic every .osrm.* input begins with. It is
// not the connectivity checksum; it is a format sentinel, checked once per
// file before any vector is read.
type Fingerprint [4]byte

var expectedFingerprint = Fingerprint{'O', 'S', 'R', 'M'}

// FileReader walks one .osrm.* input file in the fixed order its writer
// produced it: a fingerprint, then a sequence of length-prefixed vectors.
// The Sizer and Populator must call the same sequence of methods in the
// same order against the same file so their cursors agree on what length
// prefix belongs to what block — this is the "two-pass, matching read
// order" contract the rest of the package depends on.
type FileReader struct {
	path string
	f    *os.File
	r    *bufio.Reader
}

// OpenFileReader opens path and verifies its fingerprint.
func OpenFileReader(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOFailureError{Path: path, Cause: err}
	}
	fr := &FileReader{path: path, f: f, r: bufio.NewReaderSize(f, 1<<20)}
	if err := fr.checkFingerprint(); err != nil {
		f.Close()
		return nil, err
	}
	return fr, nil
}

func (fr *FileReader) checkFingerprint() error {
	var got Fingerprint
	if _, err := io.ReadFull(fr.r, got[:]); err != nil {
		return &FingerprintMismatchError{Path: fr.path}
	}
	if got != expectedFingerprint {
		return &FingerprintMismatchError{Path: fr.path}
	}
	return nil
}

// Close releases the underlying file descriptor.
func (fr *FileReader) Close() error {
	if fr.f == nil {
		return nil
	}
	return fr.f.Close()
}

// ReadCount reads one little-endian uint64 length prefix. The Sizer and
// the Populator each read every prefix themselves, in the same order.
func (fr *FileReader) ReadCount() (uint64, error) {
	var n uint64
	if err := binary.Read(fr.r, binary.LittleEndian, &n); err != nil {
		return 0, &IOFailureError{Path: fr.path, Cause: err}
	}
	return n, nil
}

// ReadVectorSize reads a length prefix and returns it as the entry count
// for a vector of T, without consuming the vector's payload bytes. Callers
// that only need sizes (the Sizer) use this and then Skip the payload;
// callers writing into shared memory (the Populator) use ReadInto instead.
func ReadVectorSize[T any](fr *FileReader) (uint64, error) {
	return fr.ReadCount()
}

// Skip discards n entries worth of T payload bytes without copying them
// anywhere, advancing the cursor exactly as far as ReadInto would.
func Skip[T any](fr *FileReader, n uint64) error {
	var zero T
	size := int64(unsafe.Sizeof(zero)) * int64(n)
	if size == 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, fr.r, size); err != nil {
		return &IOFailureError{Path: fr.path, Cause: err}
	}
	return nil
}

// ReadInto reads n entries of T directly into dst, which must be at least
// n*sizeof(T) bytes — normally a slice previously carved out of a Region
// by WriteBlock. It does not read or consume a length prefix; callers
// call ReadCount/ReadVectorSize first to learn n.
func ReadInto[T any](fr *FileReader, dst []byte, n uint64) error {
	var zero T
	size := int64(unsafe.Sizeof(zero)) * int64(n)
	if size == 0 {
		return nil
	}
	if int64(len(dst)) < size {
		panic("storage: ReadInto destination too small")
	}
	if _, err := io.ReadFull(fr.r, dst[:size]); err != nil {
		return &IOFailureError{Path: fr.path, Cause: err}
	}
	return nil
}

// ReadRaw reads exactly len(dst) bytes, for fixed-size records that are
// not length-prefixed vectors (the .osrm.properties record).
func (fr *FileReader) ReadRaw(dst []byte) error {
	if _, err := io.ReadFull(fr.r, dst); err != nil {
		return &IOFailureError{Path: fr.path, Cause: err}
	}
	return nil
}

// ReadUint32 reads one little-endian uint32 scalar (used for the turns
// connectivity checksum embedded in several input files).
func (fr *FileReader) ReadUint32() (uint32, error) {
	var v uint32
	if err := binary.Read(fr.r, binary.LittleEndian, &v); err != nil {
		return 0, &IOFailureError{Path: fr.path, Cause: err}
	}
	return v, nil
}
