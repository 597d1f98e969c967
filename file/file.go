// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package file provides a file-backed nvmem device, the conventional way to
// emulate the non-volatile memory.
package file

import (
	"os"

	"github.com/google/renameio"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/faroukmahfoudhi/nvmem"
)

var _ nvmem.Device = &Device{}

// Device is an nvmem device backed by a single regular file.  Open takes an
// exclusive advisory lock on the file, so a second process (or a second store
// in this process) can't attach to the same image while it is held.
type Device struct {
	f *os.File
}

// Open opens the image file at path, creating an empty one if it doesn't
// exist.  An empty file reads as size zero and will be formatted by the
// store's Init.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image %s", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "image %s is in use", path)
	}
	return &Device{f: f}, nil
}

func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *Device) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

// Size returns the image file's current size.
func (d *Device) Size() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "stat image")
	}
	return info.Size(), nil
}

// Sync forces the image contents to stable storage.
func (d *Device) Sync() error {
	return d.f.Sync()
}

// Close releases the lock and the file handle.
func (d *Device) Close() error {
	_ = unix.Flock(int(d.f.Fd()), unix.LOCK_UN)
	return d.f.Close()
}

// Snapshot writes an atomic copy of the current image to dest: the copy
// appears complete or not at all, never truncated.
func (d *Device) Snapshot(dest string) error {
	size, err := d.Size()
	if err != nil {
		return err
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := d.f.ReadAt(buf, 0); err != nil {
			return errors.Wrap(err, "reading image")
		}
	}
	if err := renameio.WriteFile(dest, buf, 0644); err != nil {
		return errors.Wrapf(err, "writing snapshot %s", dest)
	}
	return nil
}
