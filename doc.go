// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package nvmem emulates a small non-volatile attribute store on top of a
// flat, fixed-size byte device.  Keys are single-byte IDs, values are byte
// strings of up to 255 bytes, and every value carries an 8-bit CRC that is
// re-verified on each read.
//
// The device image is three contiguous regions at fixed offsets:
//
//	┌──────────────────────┐ 0
//	│ index table          │  256 × uint16, one per ID; 0xFFFF = absent
//	├──────────────────────┤ 512
//	│ checksum table       │  256 × uint8, one CRC per ID
//	├──────────────────────┤ 768
//	│ data region          │  packed records, in insertion order
//	└──────────────────────┘ image size (2048 by default)
//
// A record is a single length byte followed by that many value bytes:
//
//	 0    1    2
//	+----+----+----+----+----+
//	|len | value...          |
//	+----+----+----+----+----+
//
// Records are packed back to back and never move, which keeps the layout
// trivial but means an attribute can never change length: updates must match
// the stored record's size, and there is no deletion or compaction.
//
// The whole image lives in memory between Init and Uninit.  Reads are served
// from the in-memory copy; every successful mutation writes all three regions
// back to the device before returning.  There is no internal locking -- a
// store has a single owner.
//
//	dev, err := file.Open("nvm.img")
//	store, err := nvmem.New(dev)
//	err = store.Init()
//	err = store.SetAttribute(1, []byte("calibration"))
//	value, err := store.GetAttribute(1)
//	err = store.Uninit()
package nvmem
