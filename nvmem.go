// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nvmem

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/faroukmahfoudhi/nvmem/internal/crc8"
	"github.com/faroukmahfoudhi/nvmem/internal/image"
	"github.com/faroukmahfoudhi/nvmem/internal/layout"
)

// MaxValueLen is the longest value SetAttribute accepts.
const MaxValueLen = layout.MaxValueLen

// DefaultImageSize is the total image size used unless WithImageSize says
// otherwise.
const DefaultImageSize = layout.DefaultImageSize

// Store is an attribute store on top of a fixed-size byte device.  It holds
// the full image in memory; Get and Set are served from the in-memory copy,
// and every mutation is written through to the device before Set returns.
//
// A Store is single-owner state: it provides no internal locking, and callers
// must not use one from multiple goroutines without synchronizing.
type Store struct {
	dev       Device
	imageSize int
	logger    *slog.Logger
	img       *image.Image
	ready     bool
}

// New returns a Store over dev in the Uninitialized state.  Nothing is read
// from the device until Init.
func New(dev Device, opts ...Option) (*Store, error) {
	options := options{
		imageSize: layout.DefaultImageSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := layout.CheckImageSize(options.imageSize); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, err)
	}
	return &Store{
		dev:       dev,
		imageSize: options.imageSize,
		logger:    options.logger,
	}, nil
}

// Init loads the image from the device, or formats a fresh one if the device
// is empty, and moves the store to Ready.  A fresh image is persisted
// immediately so the device always holds a valid table set, even with zero
// attributes.
func (s *Store) Init() error {
	if s.ready {
		return ErrAlreadyInitialized
	}

	size, err := s.dev.Size()
	if err != nil {
		return fmt.Errorf("%w: size: %s", ErrOpeningFailure, err)
	}

	switch size {
	case 0:
		img, err := image.New(s.imageSize)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrOpeningFailure, err)
		}
		s.img = img
		if err := s.flush(); err != nil {
			s.img = nil
			return fmt.Errorf("%w: formatting: %s", ErrOpeningFailure, err)
		}
		s.ready = true
		s.logger.Debug("formatted fresh image", "size", s.imageSize, "capacity", img.Capacity())
	case int64(s.imageSize):
		buf := make([]byte, s.imageSize)
		if _, err := s.dev.ReadAt(buf, 0); err != nil {
			return fmt.Errorf("%w: reading image: %s", ErrOpeningFailure, err)
		}
		img := &image.Image{}
		if err := img.UnmarshalBytes(buf, s.imageSize); err != nil {
			return fmt.Errorf("%w: %s", ErrOpeningFailure, err)
		}
		s.img = img
		s.ready = true
		s.logger.Debug("loaded image", "size", s.imageSize, "attributes", len(s.img.IDs()))
	default:
		return fmt.Errorf("%w: device holds %d bytes, want 0 or %d", ErrOpeningFailure, size, s.imageSize)
	}

	return nil
}

// Uninit flushes all three regions to the device, closes it, and moves the
// store back to Uninitialized.  The flush completes before the device is
// released, so nothing set since the last flush can be lost here.
func (s *Store) Uninit() error {
	if !s.ready {
		return ErrNotInitialized
	}
	if err := s.flush(); err != nil {
		return err
	}
	err := s.dev.Close()
	s.img = nil
	s.ready = false
	if err != nil {
		return fmt.Errorf("closing device: %w", err)
	}
	return nil
}

// GetAttribute returns a copy of the value stored under id.  The stored
// checksum is re-verified on every read; a mismatch surfaces as
// ErrCorruptedAttribute and no partial value is returned.
func (s *Store) GetAttribute(id uint8) ([]byte, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}
	stored, crc, err := s.img.Lookup(id)
	if errors.Is(err, image.ErrAbsent) {
		return nil, fmt.Errorf("id %d: %w", id, ErrInvalidAttributeID)
	}
	if err != nil {
		// the index table points outside the data region: on-disk damage
		return nil, fmt.Errorf("%w: %s", ErrCorruptedAttribute, err)
	}
	if crc8.Checksum(stored) != crc {
		return nil, fmt.Errorf("id %d: checksum mismatch: %w", id, ErrCorruptedAttribute)
	}
	value := make([]byte, len(stored))
	copy(value, stored)
	return value, nil
}

// SetAttribute stores value under id and writes the image through to the
// device.  New attributes are appended to the data region; existing ones are
// overwritten in place and must keep their length -- this layout can't resize
// a record.  Setting the identical value again is a no-op without a flush.
func (s *Store) SetAttribute(id uint8, value []byte) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if value == nil {
		return fmt.Errorf("%w: nil value", ErrInvalidParameters)
	}
	if len(value) > MaxValueLen {
		return fmt.Errorf("%w: value is %d bytes, max %d", ErrInvalidParameters, len(value), MaxValueLen)
	}

	crc := crc8.Checksum(value)

	_, _, err := s.img.Lookup(id)
	switch {
	case errors.Is(err, image.ErrAbsent):
		if err := s.img.Insert(id, value, crc); err != nil {
			if errors.Is(err, image.ErrFull) {
				return fmt.Errorf("%w: %s", ErrMemoryFull, err)
			}
			return err
		}
		s.logger.Debug("inserted attribute", "id", id, "len", len(value))
	case err != nil:
		return fmt.Errorf("%w: %s", ErrCorruptedAttribute, err)
	default:
		changed, err := s.img.Update(id, value, crc)
		if err != nil {
			if errors.Is(err, image.ErrLengthMismatch) {
				return fmt.Errorf("%w: %s", ErrInvalidParameters, err)
			}
			return err
		}
		if !changed {
			return nil
		}
		s.logger.Debug("updated attribute", "id", id, "len", len(value))
	}

	return s.flush()
}

// Attributes returns the IDs currently present, in ascending order.
func (s *Store) Attributes() ([]uint8, error) {
	if !s.ready {
		return nil, ErrNotInitialized
	}
	return s.img.IDs(), nil
}

// Capacity returns the data region size in bytes.
func (s *Store) Capacity() (int, error) {
	if !s.ready {
		return 0, ErrNotInitialized
	}
	return s.img.Capacity(), nil
}

// flush writes all three regions to the device at their fixed offsets and
// syncs.  Mutating paths call this before reporting success.
func (s *Store) flush() error {
	if _, err := s.dev.WriteAt(s.img.MarshalIndex(), layout.IndexTableOff); err != nil {
		return fmt.Errorf("writing index table: %w", err)
	}
	if _, err := s.dev.WriteAt(s.img.MarshalChecksums(), layout.ChecksumTableOff); err != nil {
		return fmt.Errorf("writing checksum table: %w", err)
	}
	if _, err := s.dev.WriteAt(s.img.Data(), layout.DataRegionOff); err != nil {
		return fmt.Errorf("writing data region: %w", err)
	}
	if err := s.dev.Sync(); err != nil {
		return fmt.Errorf("syncing device: %w", err)
	}
	return nil
}
