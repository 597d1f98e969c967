// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package layout fixes the byte layout of an nvmem image.
//
// An image is a flat blob of ImageSize bytes split into three regions at
// fixed offsets:
//
//	┌───────────────────────┐ 0
//	│ index table           │   256 × uint16 offsets, 0xFFFF = absent
//	├───────────────────────┤ 512
//	│ checksum table        │   256 × uint8 CRCs, 0xFF filler
//	├───────────────────────┤ 768
//	│ data region           │   packed (length, value) records
//	└───────────────────────┘ ImageSize
//
// The offsets in the index table are relative to the start of the data
// region, not the start of the image.
package layout

import "fmt"

const (
	// MaxAttrs is the number of addressable attribute IDs (one byte's worth).
	MaxAttrs = 256

	// MaxValueLen is the longest value a single attribute can hold; record
	// lengths are stored in a single byte.
	MaxValueLen = (1 << 8) - 1

	IndexTableOff     = 0
	IndexTableSize    = 2 * MaxAttrs
	ChecksumTableOff  = IndexTableOff + IndexTableSize
	ChecksumTableSize = MaxAttrs
	DataRegionOff     = ChecksumTableOff + ChecksumTableSize

	// DefaultImageSize matches the size earlier revisions of this component
	// shipped with.
	DefaultImageSize = 2048

	// AbsentOffset marks an unused slot in the index table.  It doubles as
	// the upper bound on data region capacity: every valid offset has to be
	// representable in a uint16 below the sentinel.
	AbsentOffset = 0xFFFF

	// FillerChecksum fills unused checksum table slots.  0xFF is also a
	// reachable CRC value, so it never decides absence -- only the index
	// table does.
	FillerChecksum = 0xFF

	// FillerByte fills the data region of a fresh image.
	FillerByte = 0xFF
)

// DataCapacity returns the data region size for a total image of imageSize
// bytes.
func DataCapacity(imageSize int) int {
	return imageSize - DataRegionOff
}

// CheckImageSize rejects image sizes that leave no room for records or whose
// data region can't be addressed by uint16 offsets below AbsentOffset.
func CheckImageSize(imageSize int) error {
	if c := DataCapacity(imageSize); c < 1 {
		return fmt.Errorf("image size %d too small: need at least %d bytes for the tables plus 1 for data", imageSize, DataRegionOff+1)
	} else if c >= AbsentOffset {
		return fmt.Errorf("image size %d too large: data region %d can't be indexed by 16-bit offsets", imageSize, c)
	}
	return nil
}
