// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package crc8 implements the 8-bit CRC stored alongside every attribute.
//
// The parameters (polynomial 0x31, initial value 0xFF, MSB first) are frozen:
// images written by earlier implementations of this component carry checksums
// produced by exactly this routine.
package crc8

// Checksum returns the CRC of data.  The empty slice checksums to 0xFF.
func Checksum(data []byte) uint8 {
	crc := uint8(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
