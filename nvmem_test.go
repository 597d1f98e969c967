// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nvmem_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faroukmahfoudhi/nvmem"
	"github.com/faroukmahfoudhi/nvmem/internal/layout"
	"github.com/faroukmahfoudhi/nvmem/internal/testutil"
	"github.com/faroukmahfoudhi/nvmem/mem"
)

func newReadyStore(t *testing.T, opts ...nvmem.Option) (*nvmem.Store, *mem.Device) {
	t.Helper()
	dev := mem.New()
	store, err := nvmem.New(dev, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	return store, dev
}

// reopen simulates a process restart: the old device's bytes become a new
// device, and a new store loads them.
func reopen(t *testing.T, dev *mem.Device, opts ...nvmem.Option) (*nvmem.Store, *mem.Device) {
	t.Helper()
	dev2 := mem.FromBytes(dev.Bytes())
	store, err := nvmem.New(dev2, opts...)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	return store, dev2
}

func TestRoundTrip(t *testing.T) {
	store, _ := newReadyStore(t)

	values := map[uint8][]byte{
		0:   []byte("first"),
		1:   {0xAA},
		7:   {},
		42:  []byte("some longer calibration blob with spaces"),
		255: {0xBB, 0xBB},
	}
	for id, v := range values {
		require.NoError(t, store.SetAttribute(id, v))
	}
	for id, v := range values {
		got, err := store.GetAttribute(id)
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(v), len(got))
	}

	ids, err := store.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 7, 42, 255}, ids)
}

func TestGetReturnsCopy(t *testing.T) {
	store, _ := newReadyStore(t)
	require.NoError(t, store.SetAttribute(9, []byte{1, 2, 3}))

	got, err := store.GetAttribute(9)
	require.NoError(t, err)
	got[0] = 0xFF

	again, err := store.GetAttribute(9)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestStateMachine(t *testing.T) {
	dev := mem.New()
	store, err := nvmem.New(dev)
	require.NoError(t, err)

	// nothing works before Init
	_, err = store.GetAttribute(1)
	assert.ErrorIs(t, err, nvmem.ErrNotInitialized)
	assert.ErrorIs(t, store.SetAttribute(1, []byte{1}), nvmem.ErrNotInitialized)
	assert.ErrorIs(t, store.Uninit(), nvmem.ErrNotInitialized)

	require.NoError(t, store.Init())
	assert.ErrorIs(t, store.Init(), nvmem.ErrAlreadyInitialized)

	require.NoError(t, store.Uninit())
	assert.ErrorIs(t, store.Uninit(), nvmem.ErrNotInitialized)
	_, err = store.GetAttribute(1)
	assert.ErrorIs(t, err, nvmem.ErrNotInitialized)
}

func TestFreshImagePersistedAtInit(t *testing.T) {
	_, dev := newReadyStore(t)

	img := dev.Bytes()
	require.Equal(t, nvmem.DefaultImageSize, len(img))
	// index table all-absent, checksum table and data region all filler
	for i, b := range img {
		require.Equal(t, byte(0xFF), b, "byte %d", i)
	}
}

func TestIdempotentUpdateSkipsFlush(t *testing.T) {
	store, dev := newReadyStore(t)
	flushWrites := dev.Writes() // the fresh-image flush

	require.NoError(t, store.SetAttribute(3, []byte("same")))
	afterFirst := dev.Writes()
	assert.Greater(t, afterFirst, flushWrites)

	require.NoError(t, store.SetAttribute(3, []byte("same")))
	assert.Equal(t, afterFirst, dev.Writes(), "identical update must not flush")

	require.NoError(t, store.SetAttribute(3, []byte("diff")))
	assert.Greater(t, dev.Writes(), afterFirst)

	got, err := store.GetAttribute(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("diff"), got)
}

func TestLengthChangeRejected(t *testing.T) {
	store, _ := newReadyStore(t)
	require.NoError(t, store.SetAttribute(5, []byte("12345")))

	err := store.SetAttribute(5, []byte("123456"))
	assert.ErrorIs(t, err, nvmem.ErrInvalidParameters)
	err = store.SetAttribute(5, []byte("1234"))
	assert.ErrorIs(t, err, nvmem.ErrInvalidParameters)

	got, err := store.GetAttribute(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), got)
}

func TestInvalidParameters(t *testing.T) {
	store, _ := newReadyStore(t)

	assert.ErrorIs(t, store.SetAttribute(1, nil), nvmem.ErrInvalidParameters)
	assert.ErrorIs(t, store.SetAttribute(1, make([]byte, nvmem.MaxValueLen+1)), nvmem.ErrInvalidParameters)

	// max-length value is fine
	require.NoError(t, store.SetAttribute(1, make([]byte, nvmem.MaxValueLen)))
}

func TestAbsentID(t *testing.T) {
	store, _ := newReadyStore(t)
	_, err := store.GetAttribute(200)
	assert.ErrorIs(t, err, nvmem.ErrInvalidAttributeID)
}

func TestMemoryFull(t *testing.T) {
	// 16 bytes of data capacity
	store, dev := newReadyStore(t, nvmem.WithImageSize(layout.DataRegionOff+16))

	require.NoError(t, store.SetAttribute(1, make([]byte, 10))) // 11 bytes
	before, err := testutil.Fingerprint(dev, int64(layout.DataRegionOff+16))
	require.NoError(t, err)

	err = store.SetAttribute(2, make([]byte, 10))
	assert.ErrorIs(t, err, nvmem.ErrMemoryFull)

	// the failed insert disturbed nothing, in memory or on the device
	after, err := testutil.Fingerprint(dev, int64(layout.DataRegionOff+16))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	got, err := store.GetAttribute(1)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 10), got)
	_, err = store.GetAttribute(2)
	assert.ErrorIs(t, err, nvmem.ErrInvalidAttributeID)

	// 5 bytes remain: a 4-byte value fills the region exactly
	require.NoError(t, store.SetAttribute(3, make([]byte, 4)))
	assert.ErrorIs(t, store.SetAttribute(4, []byte{}), nvmem.ErrMemoryFull)
}

func TestCorruptionDetected(t *testing.T) {
	store, dev := newReadyStore(t)
	require.NoError(t, store.SetAttribute(1, []byte{0x10, 0x20, 0x30}))
	require.NoError(t, store.Uninit())

	// flip one bit of the first value byte (record starts at data offset 0,
	// value after the length byte)
	for bit := uint8(0); bit < 8; bit++ {
		corrupted := mem.FromBytes(dev.Bytes())
		corrupted.Corrupt(int64(layout.DataRegionOff+1), bit)

		store2, err := nvmem.New(corrupted)
		require.NoError(t, err)
		require.NoError(t, store2.Init())
		_, err = store2.GetAttribute(1)
		assert.ErrorIs(t, err, nvmem.ErrCorruptedAttribute, "bit %d", bit)
	}
}

func TestChecksumSentinelCollision(t *testing.T) {
	// crc8 of {0x03} is 0xFF, the checksum table filler.  Existence is
	// decided by the index table alone, so the value still reads back.
	store, dev := newReadyStore(t)
	require.NoError(t, store.SetAttribute(77, []byte{0x03}))

	store2, _ := reopen(t, dev)
	got, err := store2.GetAttribute(77)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, got)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	value := make([]byte, 20)
	for i := range value {
		value[i] = byte(i)
	}

	dev := mem.New()
	store, err := nvmem.New(dev)
	require.NoError(t, err)
	require.NoError(t, store.Init())
	require.NoError(t, store.SetAttribute(1, value))
	require.NoError(t, store.Uninit())

	store2, _ := reopen(t, dev)
	got, err := store2.GetAttribute(1)
	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 20, len(got))
	require.NoError(t, store2.Uninit())
}

func TestInitRejectsSizeMismatch(t *testing.T) {
	dev := mem.FromBytes(make([]byte, 100))
	store, err := nvmem.New(dev)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Init(), nvmem.ErrOpeningFailure)
}

func TestInitRejectsBrokenIndex(t *testing.T) {
	store, dev := newReadyStore(t)
	require.NoError(t, store.SetAttribute(1, []byte{1, 2, 3}))
	require.NoError(t, store.Uninit())

	// point id 1's offset past the data region
	img := dev.Bytes()
	img[2] = 0xFE
	img[3] = 0xFE

	store2, err := nvmem.New(mem.FromBytes(img))
	require.NoError(t, err)
	assert.ErrorIs(t, store2.Init(), nvmem.ErrOpeningFailure)
}

func TestBadImageSizeOption(t *testing.T) {
	_, err := nvmem.New(mem.New(), nvmem.WithImageSize(layout.DataRegionOff))
	assert.ErrorIs(t, err, nvmem.ErrInvalidParameters)

	_, err = nvmem.New(mem.New(), nvmem.WithImageSize(layout.DataRegionOff+0xFFFF))
	assert.ErrorIs(t, err, nvmem.ErrInvalidParameters)

	// largest usable image
	_, err = nvmem.New(mem.New(), nvmem.WithImageSize(layout.DataRegionOff+0xFFFE))
	require.NoError(t, err)
}

// faultDevice fails every write once armed, like a worn-out flash part.
type faultDevice struct {
	*mem.Device
	failWrites bool
}

func (d *faultDevice) WriteAt(p []byte, off int64) (int, error) {
	if d.failWrites {
		return 0, errors.New("write failed")
	}
	return d.Device.WriteAt(p, off)
}

func TestSetSurfacesFlushFailure(t *testing.T) {
	dev := &faultDevice{Device: mem.New()}
	store, err := nvmem.New(dev)
	require.NoError(t, err)
	require.NoError(t, store.Init())

	dev.failWrites = true
	assert.Error(t, store.SetAttribute(1, []byte{1}))
}
