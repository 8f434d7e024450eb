// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package osmpbf

import (
	"runtime"
	"time"

	"m4o.io/osmpbf/codec"
)

const (
	// DefaultMaxBlobSize is the safety ceiling for a single blob, compressed
	// or uncompressed.  Typical blocks stay under 32 MiB.
	DefaultMaxBlobSize = 64 * 1024 * 1024

	// DefaultMinWorkers is the worker-pool floor.
	DefaultMinWorkers = 1
)

// DefaultMaxWorkers provides the default worker-pool ceiling: one hardware
// thread is left for the orchestrator.
func DefaultMaxWorkers() int {
	return max(runtime.GOMAXPROCS(-1)-1, 1)
}

// decoderOptions provides optional configuration parameters for Decoder
// construction.
type decoderOptions struct {
	minWorkers  int
	maxWorkers  int
	inFlight    int
	maxBlobSize int
	idleTimeout time.Duration
	registry    *codec.Registry
	diagnostics func(Warning)
}

// DecoderOption configures how we set up the decoder.
type DecoderOption func(*decoderOptions)

// WithMaxWorkers lets you set the maximum number of decompression workers.
func WithMaxWorkers(n int) DecoderOption {
	return func(o *decoderOptions) {
		if n > 0 {
			o.maxWorkers = n
		}
	}
}

// WithMinWorkers lets you set the worker floor kept alive through idle
// stretches.
func WithMinWorkers(n int) DecoderOption {
	return func(o *decoderOptions) {
		if n >= 0 {
			o.minWorkers = n
		}
	}
}

// WithInFlight lets you bound the number of outstanding decompressions.  The
// default is twice the worker ceiling.
func WithInFlight(n int) DecoderOption {
	return func(o *decoderOptions) {
		if n > 0 {
			o.inFlight = n
		}
	}
}

// WithMaxBlobSize lets you set the blob safety ceiling.
func WithMaxBlobSize(n int) DecoderOption {
	return func(o *decoderOptions) {
		if n > 0 {
			o.maxBlobSize = n
		}
	}
}

// WithIdleTimeout lets you set how long surplus workers survive without work.
func WithIdleTimeout(d time.Duration) DecoderOption {
	return func(o *decoderOptions) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithRegistry lets you swap the codec registry, e.g. to strip optional
// codecs or register custom ones.
func WithRegistry(r *codec.Registry) DecoderOption {
	return func(o *decoderOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithDiagnostics lets you receive warnings that do not stop the pipeline.
func WithDiagnostics(fn func(Warning)) DecoderOption {
	return func(o *decoderOptions) {
		o.diagnostics = fn
	}
}

func defaultDecoderOptions() decoderOptions {
	maxWorkers := DefaultMaxWorkers()

	return decoderOptions{
		minWorkers:  DefaultMinWorkers,
		maxWorkers:  maxWorkers,
		inFlight:    2 * maxWorkers,
		maxBlobSize: DefaultMaxBlobSize,
		registry:    codec.Default(),
	}
}
