// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package image holds the in-memory mirror of an nvmem image: the index
// table, the checksum table and the data region.  It is purely mechanical --
// it moves bytes and enforces layout invariants, while the nvmem package
// above it owns checksum computation and the lifecycle state machine.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/faroukmahfoudhi/nvmem/internal/layout"
)

var (
	// ErrAbsent is returned when the index table holds no offset for an ID.
	ErrAbsent = errors.New("attribute not present")

	// ErrFull is returned when a record would not fit in the data region.
	ErrFull = errors.New("data region full")

	// ErrLengthMismatch is returned when an update would change a record's
	// length.  Records are packed back to back and never move, so in-place
	// resizing is impossible by construction.
	ErrLengthMismatch = errors.New("value length differs from stored record")

	// ErrOutOfBounds is returned when a stored offset or length points
	// outside the data region.
	ErrOutOfBounds = errors.New("record beyond data region bounds")
)

// Image is the in-memory copy of a complete nvmem image.  All reads and
// writes the store serves go against an Image; the backing device only sees
// whole-region flushes.
type Image struct {
	index [layout.MaxAttrs]uint16
	crcs  [layout.MaxAttrs]uint8
	data  []byte
}

// New returns a fresh Image for a total image of imageSize bytes: every index
// slot absent, every checksum slot filler, the data region wiped.
func New(imageSize int) (*Image, error) {
	if err := layout.CheckImageSize(imageSize); err != nil {
		return nil, err
	}
	img := &Image{
		data: make([]byte, layout.DataCapacity(imageSize)),
	}
	for i := range img.index {
		img.index[i] = layout.AbsentOffset
	}
	for i := range img.crcs {
		img.crcs[i] = layout.FillerChecksum
	}
	for i := range img.data {
		img.data[i] = layout.FillerByte
	}
	return img, nil
}

// Capacity returns the size of the data region in bytes.
func (img *Image) Capacity() int {
	return len(img.data)
}

// UnmarshalBytes replaces img's contents with the image serialized in b,
// which must be exactly imageSize bytes.  Every non-absent index entry is
// bounds-checked against the data region before any table is touched, so a
// truncated or foreign image never becomes servable.
func (img *Image) UnmarshalBytes(b []byte, imageSize int) error {
	if err := layout.CheckImageSize(imageSize); err != nil {
		return err
	}
	if len(b) != imageSize {
		return fmt.Errorf("image is %d bytes, want %d", len(b), imageSize)
	}

	capacity := layout.DataCapacity(imageSize)
	indexBytes := b[layout.IndexTableOff : layout.IndexTableOff+layout.IndexTableSize]
	data := b[layout.DataRegionOff:]

	var index [layout.MaxAttrs]uint16
	for id := 0; id < layout.MaxAttrs; id++ {
		off := binary.LittleEndian.Uint16(indexBytes[2*id : 2*id+2])
		if off != layout.AbsentOffset {
			if int(off) >= capacity {
				return fmt.Errorf("id %d: offset %d beyond data region (%d): %w", id, off, capacity, ErrOutOfBounds)
			}
			if end := int(off) + 1 + int(data[off]); end > capacity {
				return fmt.Errorf("id %d: record at %d runs to %d, beyond data region (%d): %w", id, off, end, capacity, ErrOutOfBounds)
			}
		}
		index[id] = off
	}

	img.index = index
	copy(img.crcs[:], b[layout.ChecksumTableOff:layout.ChecksumTableOff+layout.ChecksumTableSize])
	img.data = make([]byte, capacity)
	copy(img.data, data)
	return nil
}

// Lookup returns the value bytes and stored checksum for id.  The returned
// slice aliases the data region; callers that hand it out must copy first.
func (img *Image) Lookup(id uint8) (value []byte, crc uint8, err error) {
	off := img.index[id]
	if off == layout.AbsentOffset {
		return nil, 0, ErrAbsent
	}
	if int(off) >= len(img.data) {
		return nil, 0, fmt.Errorf("id %d: offset %d: %w", id, off, ErrOutOfBounds)
	}
	length := int(img.data[off])
	if int(off)+1+length > len(img.data) {
		return nil, 0, fmt.Errorf("id %d: record at %d length %d: %w", id, off, length, ErrOutOfBounds)
	}
	return img.data[int(off)+1 : int(off)+1+length], img.crcs[id], nil
}

// Insert appends a record for an id the index table doesn't know yet.  The
// capacity check happens before any table is touched; a full data region
// leaves img exactly as it was.
func (img *Image) Insert(id uint8, value []byte, crc uint8) error {
	off := img.nextFree()
	if off+1+len(value) > len(img.data) {
		return fmt.Errorf("record of %d bytes at offset %d exceeds capacity %d: %w", 1+len(value), off, len(img.data), ErrFull)
	}
	img.data[off] = uint8(len(value))
	copy(img.data[off+1:], value)
	img.index[id] = uint16(off)
	img.crcs[id] = crc
	return nil
}

// Update overwrites the value of an existing record in place.  It reports
// whether anything changed: writing back the identical bytes is a no-op so
// the store can skip the flush.  The new value must have the stored length.
func (img *Image) Update(id uint8, value []byte, crc uint8) (changed bool, err error) {
	stored, _, err := img.Lookup(id)
	if err != nil {
		return false, err
	}
	if len(value) != len(stored) {
		return false, fmt.Errorf("got %d bytes, stored record holds %d: %w", len(value), len(stored), ErrLengthMismatch)
	}
	if bytes.Equal(value, stored) {
		return false, nil
	}
	copy(stored, value)
	img.crcs[id] = crc
	return true, nil
}

// IDs returns the present attribute IDs in ascending order.
func (img *Image) IDs() []uint8 {
	ids := make([]uint8, 0, layout.MaxAttrs)
	for id := 0; id < layout.MaxAttrs; id++ {
		if img.index[id] != layout.AbsentOffset {
			ids = append(ids, uint8(id))
		}
	}
	return ids
}

// nextFree returns the first unused data region offset: the records are
// packed with no gaps, so it is the sum of (1 + length) over every present
// record.
func (img *Image) nextFree() int {
	off := 0
	for id := 0; id < layout.MaxAttrs; id++ {
		if entry := img.index[id]; entry != layout.AbsentOffset {
			off += 1 + int(img.data[entry])
		}
	}
	return off
}

// MarshalIndex serializes the index table region.
func (img *Image) MarshalIndex() []byte {
	b := make([]byte, layout.IndexTableSize)
	for id := 0; id < layout.MaxAttrs; id++ {
		binary.LittleEndian.PutUint16(b[2*id:2*id+2], img.index[id])
	}
	return b
}

// MarshalChecksums serializes the checksum table region.
func (img *Image) MarshalChecksums() []byte {
	b := make([]byte, layout.ChecksumTableSize)
	copy(b, img.crcs[:])
	return b
}

// Data returns the raw data region for flushing.  The slice aliases img.
func (img *Image) Data() []byte {
	return img.data
}
