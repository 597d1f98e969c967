// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nvmem

import "errors"

// Every operation reports failure through one of these sentinels (possibly
// wrapped with context); match with errors.Is.
var (
	// ErrAlreadyInitialized is returned by Init on a store that is Ready.
	ErrAlreadyInitialized = errors.New("nvmem: store already initialized")

	// ErrNotInitialized is returned by every operation on a store that has
	// not been initialized, or that has been uninitialized.
	ErrNotInitialized = errors.New("nvmem: store not initialized")

	// ErrOpeningFailure is returned by Init when the backing device can't be
	// read, is the wrong size, or holds a structurally broken image.
	ErrOpeningFailure = errors.New("nvmem: can't open backing device")

	// ErrInvalidParameters is returned for a missing value buffer, a value
	// over 255 bytes, or an update that would change a record's length.
	ErrInvalidParameters = errors.New("nvmem: invalid parameters")

	// ErrInvalidAttributeID is returned by GetAttribute for an ID that was
	// never set.  Probing optional attributes is expected to hit this.
	ErrInvalidAttributeID = errors.New("nvmem: attribute not found")

	// ErrCorruptedAttribute is returned by GetAttribute when the stored
	// checksum doesn't match the stored value.  No partial value escapes.
	ErrCorruptedAttribute = errors.New("nvmem: attribute corrupted")

	// ErrMemoryFull is returned by SetAttribute when a new record would not
	// fit in the data region.  The store is left unchanged.
	ErrMemoryFull = errors.New("nvmem: memory full")
)
