// Copyright 2023 The nvmem Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package nvmem

import "log/slog"

// Option configures a Store.
type Option func(*options)

type options struct {
	imageSize int
	logger    *slog.Logger
}

// WithImageSize overrides the total image size in bytes.  The default is
// 2048, the size earlier revisions of this component shipped with.  The
// value must leave
// room for the tables plus at least one data byte, and the resulting data
// region must stay addressable by 16-bit offsets; New rejects anything else.
func WithImageSize(size int) Option {
	return func(opts *options) {
		opts.imageSize = size
	}
}

// WithLogger sets an optional logger used for debug-level progress output.
// If not provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}
