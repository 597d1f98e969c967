// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nvmem

import "io"

// Device is the persistent byte storage a Store sits on.  The store only
// needs positioned reads and writes, a size query, durability, and release --
// nothing about the medium.  The file and mem packages provide the two
// standard implementations.
//
// A Device is owned by at most one Store between Init and Uninit; Uninit
// closes it.  Implementations with other users (the file device, say) should
// enforce exclusivity themselves.
type Device interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current size of the device in bytes.  A zero size
	// means the device holds no prior image and will be formatted.
	Size() (int64, error)

	// Sync forces previously written bytes to stable storage.
	Sync() error

	io.Closer
}
