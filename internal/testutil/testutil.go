// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package testutil has helpers for asserting on whole device images in
// tests.
package testutil

import (
	"fmt"
	"io"

	"github.com/dgryski/go-farm"
)

// Fingerprint hashes size bytes of r starting at offset 0.  Comparing
// fingerprints before and after an operation is a cheap way to assert a
// device image was (or wasn't) disturbed.
func Fingerprint(r io.ReaderAt, size int64) (uint64, error) {
	buf := make([]byte, size)
	if size > 0 {
		if _, err := r.ReadAt(buf, 0); err != nil {
			return 0, fmt.Errorf("reading image: %w", err)
		}
	}
	return farm.Hash64(buf), nil
}
