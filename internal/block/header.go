// Copyright 2025 the original author or authors.
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

package block

import (
	"errors"
	"fmt"
	"io"
	"time"

	"m4o.io/osmpbf/internal/wire"
	"m4o.io/osmpbf/model"
)

// ErrUnsupportedFeature is returned when a file requires a feature this
// decoder does not provide.
var ErrUnsupportedFeature = errors.New("unsupported required feature")

// recognizedFeatures is the set of required_features entries this decoder
// can honor.
var recognizedFeatures = map[string]bool{
	"OsmSchema-V0.6":        true,
	"DenseNodes":            true,
	"HistoricalInformation": true,
	"Sort.Type_then_ID":     true,
	"LocationsOnWays":       true,
}

// DecodeHeader parses a HeaderBlock.  Every required feature must be
// recognized; the result owns its strings and outlives the block buffer.
func DecodeHeader(buf []byte) (*model.Header, error) {
	h := &model.Header{}

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}

		switch {
		case num == 1 && typ == wire.TypeBytes:
			b, err := s.Bytes()
			if err != nil {
				return nil, err
			}

			if h.BoundingBox, err = decodeBBox(b); err != nil {
				return nil, err
			}

		case num == 4 && typ == wire.TypeBytes:
			f, err := s.String()
			if err != nil {
				return nil, err
			}
			h.RequiredFeatures = append(h.RequiredFeatures, f)

		case num == 5 && typ == wire.TypeBytes:
			f, err := s.String()
			if err != nil {
				return nil, err
			}
			h.OptionalFeatures = append(h.OptionalFeatures, f)

		case num == 16 && typ == wire.TypeBytes:
			if h.WritingProgram, err = s.String(); err != nil {
				return nil, err
			}

		case num == 17 && typ == wire.TypeBytes:
			if h.Source, err = s.String(); err != nil {
				return nil, err
			}

		case num == 32 && typ == wire.TypeVarint:
			ts, err := s.Int64()
			if err != nil {
				return nil, err
			}
			h.OsmosisReplicationTimestamp = time.Unix(ts, 0)

		case num == 33 && typ == wire.TypeVarint:
			if h.OsmosisReplicationSequenceNumber, err = s.Int64(); err != nil {
				return nil, err
			}

		case num == 34 && typ == wire.TypeBytes:
			if h.OsmosisReplicationBaseURL, err = s.String(); err != nil {
				return nil, err
			}

		default:
			if err := s.Skip(typ); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range h.RequiredFeatures {
		if !recognizedFeatures[f] {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFeature, f)
		}
	}

	return h, nil
}

// decodeBBox parses a HeaderBBox message: four zig-zag int64s in nanodegrees.
func decodeBBox(buf []byte) (*model.BoundingBox, error) {
	bbox := &model.BoundingBox{}

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			return bbox, nil
		} else if err != nil {
			return nil, err
		}

		if typ != wire.TypeVarint {
			if err := s.Skip(typ); err != nil {
				return nil, err
			}

			continue
		}

		v, err := s.Svarint()
		if err != nil {
			return nil, err
		}

		deg := model.ToDegrees(0, 1, v)

		switch num {
		case 1:
			bbox.Left = deg
		case 2:
			bbox.Right = deg
		case 3:
			bbox.Top = deg
		case 4:
			bbox.Bottom = deg
		}
	}
}
