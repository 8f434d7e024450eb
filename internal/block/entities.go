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

// decodeNode decodes one sparse Node message.  The rare path: most producers
// emit dense groups.
func (d *Decoder) decodeNode(buf []byte, sink Sink) error {
	var id, lat, lon int64
	var keys, vals packed
	var info []byte

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		switch {
		case num == 1 && typ == wire.TypeVarint:
			if id, err = s.Svarint(); err != nil {
				return err
			}

		case num == 2 && typ == wire.TypeBytes:
			if keys.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 3 && typ == wire.TypeBytes:
			if vals.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 4 && typ == wire.TypeBytes:
			if info, err = s.Bytes(); err != nil {
				return err
			}

		case num == 8 && typ == wire.TypeVarint:
			if lat, err = s.Svarint(); err != nil {
				return err
			}

		case num == 9 && typ == wire.TypeVarint:
			if lon, err = s.Svarint(); err != nil {
				return err
			}

		default:
			if err := s.Skip(typ); err != nil {
				return err
			}
		}
	}

	tags, err := d.tags(&keys, &vals)
	if err != nil {
		return err
	}

	d.node = model.Node{
		ID:   model.ID(id),
		Tags: tags,
		Lat:  d.degrees(d.latOffset, lat),
		Lon:  d.degrees(d.lonOffset, lon),
	}

	if d.node.Info, err = d.info(info); err != nil {
		return err
	}

	sink.Node(&d.node)

	return nil
}

// decodeWay decodes one Way message.  Refs are delta-coded within the way.
func (d *Decoder) decodeWay(buf []byte, sink Sink) error {
	var id int64
	var keys, vals packed
	var refs delta
	var info []byte

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		switch {
		case num == 1 && typ == wire.TypeVarint:
			if id, err = s.Int64(); err != nil {
				return err
			}

		case num == 2 && typ == wire.TypeBytes:
			if keys.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 3 && typ == wire.TypeBytes:
			if vals.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 4 && typ == wire.TypeBytes:
			if info, err = s.Bytes(); err != nil {
				return err
			}

		case num == 8 && typ == wire.TypeBytes:
			if refs.buf, err = s.Bytes(); err != nil {
				return err
			}

		default:
			if err := s.Skip(typ); err != nil {
				return err
			}
		}
	}

	d.refs = d.refs[:0]
	for refs.more() {
		ref, err := refs.next()
		if err != nil {
			return err
		}
		d.refs = append(d.refs, model.ID(ref))
	}

	tags, err := d.tags(&keys, &vals)
	if err != nil {
		return err
	}

	d.way = model.Way{
		ID:      model.ID(id),
		Tags:    tags,
		NodeIDs: d.refs,
	}

	if d.way.Info, err = d.info(info); err != nil {
		return err
	}

	sink.Way(&d.way)

	return nil
}

// decodeRelation decodes one Relation message.  Member ids are delta-coded;
// roles and types are parallel arrays of equal length.
func (d *Decoder) decodeRelation(buf []byte, sink Sink) error {
	var id int64
	var keys, vals, roles, types packed
	var memids delta
	var info []byte

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		switch {
		case num == 1 && typ == wire.TypeVarint:
			if id, err = s.Int64(); err != nil {
				return err
			}

		case num == 2 && typ == wire.TypeBytes:
			if keys.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 3 && typ == wire.TypeBytes:
			if vals.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 4 && typ == wire.TypeBytes:
			if info, err = s.Bytes(); err != nil {
				return err
			}

		case num == 8 && typ == wire.TypeBytes:
			if roles.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 9 && typ == wire.TypeBytes:
			if memids.buf, err = s.Bytes(); err != nil {
				return err
			}

		case num == 10 && typ == wire.TypeBytes:
			if types.buf, err = s.Bytes(); err != nil {
				return err
			}

		default:
			if err := s.Skip(typ); err != nil {
				return err
			}
		}
	}

	d.members = d.members[:0]

	for memids.more() {
		ref, err := memids.next()
		if err != nil {
			return err
		}

		if !roles.more() || !types.more() {
			return fmt.Errorf("%w: member roles/types shorter than ids", ErrParallelArrayLengthMismatch)
		}

		sid, err := roles.uvarint()
		if err != nil {
			return err
		}

		role, err := d.strings.get(sid)
		if err != nil {
			return err
		}

		mt, err := types.uvarint()
		if err != nil {
			return err
		}
		if mt > uint64(model.RELATION) {
			return fmt.Errorf("%w: %d", ErrMalformedMemberType, mt)
		}

		d.members = append(d.members, model.Member{
			ID:   model.ID(ref),
			Type: model.EntityType(mt),
			Role: role,
		})
	}

	if roles.more() || types.more() {
		return fmt.Errorf("%w: member roles/types longer than ids", ErrParallelArrayLengthMismatch)
	}

	tags, err := d.tags(&keys, &vals)
	if err != nil {
		return err
	}

	d.rel = model.Relation{
		ID:      model.ID(id),
		Tags:    tags,
		Members: d.members,
	}

	if d.rel.Info, err = d.info(info); err != nil {
		return err
	}

	sink.Relation(&d.rel)

	return nil
}

// tags resolves parallel key/val index arrays against the string table.
func (d *Decoder) tags(keys, vals *packed) (map[string]string, error) {
	var tags map[string]string

	for keys.more() {
		if !vals.more() {
			return nil, fmt.Errorf("%w: vals shorter than keys", ErrParallelArrayLengthMismatch)
		}

		k, err := keys.uvarint()
		if err != nil {
			return nil, err
		}

		v, err := vals.uvarint()
		if err != nil {
			return nil, err
		}

		key, err := d.strings.get(k)
		if err != nil {
			return nil, err
		}

		val, err := d.strings.get(v)
		if err != nil {
			return nil, err
		}

		if tags == nil {
			tags = make(map[string]string)
		}
		tags[key] = val
	}

	if vals.more() {
		return nil, fmt.Errorf("%w: vals longer than keys", ErrParallelArrayLengthMismatch)
	}

	return tags, nil
}

// info decodes an optional Info message.
func (d *Decoder) info(buf []byte) (*model.Info, error) {
	if buf == nil {
		return nil, nil
	}

	info := &model.Info{Visible: true}

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			return info, nil
		} else if err != nil {
			return nil, err
		}

		if typ != wire.TypeVarint {
			if err := s.Skip(typ); err != nil {
				return nil, err
			}

			continue
		}

		v, err := s.Uvarint()
		if err != nil {
			return nil, err
		}

		switch num {
		case 1:
			info.Version = int32(v)
		case 2:
			info.Timestamp = toTimestamp(d.dateGranularity, int64(v))
		case 3:
			info.Changeset = int64(v)
		case 4:
			info.UID = model.UID(v)
		case 5:
			if info.User, err = d.strings.get(v); err != nil {
				return nil, err
			}
		case 6:
			info.Visible = v != 0
		}
	}
}

// toTimestamp converts a timestamp with a specific granularity, in units of
// milliseconds, to a UTC timestamp.
func toTimestamp(granularity, timestamp int64) time.Time {
	return time.UnixMilli(timestamp * granularity).UTC()
}
