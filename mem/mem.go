// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package mem provides an in-memory nvmem device.  It is handy in tests and
// anywhere persistence across process restarts isn't needed -- the store only
// ever asks for positioned reads and writes, so a byte slice serves fine.
package mem

import (
	"errors"
	"sync"

	"github.com/faroukmahfoudhi/nvmem"
)

var _ nvmem.Device = &Device{}

// Device is a byte-slice-backed nvmem device.  The zero value is an empty
// device that the store will format on Init; use FromBytes to start from an
// existing image.
//
// Unlike the store itself, a Device is safe for concurrent use, matching
// what a real storage medium provides.
type Device struct {
	mu     sync.Mutex
	buf    []byte
	writes int
	closed bool
}

// New returns an empty Device.
func New() *Device {
	return &Device{}
}

// FromBytes returns a Device holding a copy of image.
func FromBytes(image []byte) *Device {
	d := &Device{buf: make([]byte, len(image))}
	copy(d.buf, image)
	return d
}

func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errors.New("mem: device closed")
	}
	if off < 0 || int(off) > len(d.buf) {
		return 0, errors.New("mem: read out of bounds")
	}
	n := copy(p, d.buf[off:])
	if n < len(p) {
		return n, errors.New("mem: short read")
	}
	return n, nil
}

// WriteAt grows the device as needed; a fresh device takes its size from the
// store's first flush.
func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errors.New("mem: device closed")
	}
	if off < 0 {
		return 0, errors.New("mem: write out of bounds")
	}
	if end := int(off) + len(p); end > len(d.buf) {
		d.buf = append(d.buf, make([]byte, end-len(d.buf))...)
	}
	d.writes++
	return copy(d.buf[off:], p), nil
}

func (d *Device) Size() (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errors.New("mem: device closed")
	}
	return int64(len(d.buf)), nil
}

// Sync is a no-op: the slice is as stable as this device gets.
func (d *Device) Sync() error {
	return nil
}

// Close marks the device closed.  The bytes stay readable through Bytes so a
// later Device (or test assertion) can pick the image back up.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Bytes returns a copy of the device contents.
func (d *Device) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.buf))
	copy(out, d.buf)
	return out
}

// Writes returns how many WriteAt calls the device has served.  Tests use it
// to check that identical updates don't flush.
func (d *Device) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Corrupt flips a single bit at off.  Only tests have any business calling
// this.
func (d *Device) Corrupt(off int64, bit uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf[off] ^= 1 << (bit % 8)
}
