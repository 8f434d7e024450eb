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

	"m4o.io/osmpbf/internal/wire"
	"m4o.io/osmpbf/model"
)

// decodeDenseNodes walks a DenseNodes message.  IDs, latitudes and longitudes
// are parallel delta-coded arrays; tags are one zero-terminated interleaved
// index stream shared by every node in the group.
func (d *Decoder) decodeDenseNodes(buf []byte, sink Sink) error {
	var ids, lats, lons delta
	var kvs packed
	var info []byte

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if typ != wire.TypeBytes {
			if err := s.Skip(typ); err != nil {
				return err
			}

			continue
		}

		b, err := s.Bytes()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			ids.buf = b
		case 5:
			info = b
		case 8:
			lats.buf = b
		case 9:
			lons.buf = b
		case 10:
			kvs.buf = b
		}
	}

	dic, err := newDenseInfo(info, d.dateGranularity, d.strings)
	if err != nil {
		return err
	}

	for ids.more() {
		id, err := ids.next()
		if err != nil {
			return err
		}

		if !lats.more() || !lons.more() {
			return fmt.Errorf("%w: dense lat/lon shorter than id", ErrParallelArrayLengthMismatch)
		}

		lat, err := lats.next()
		if err != nil {
			return err
		}

		lon, err := lons.next()
		if err != nil {
			return err
		}

		tags, err := d.denseTags(&kvs)
		if err != nil {
			return err
		}

		d.node = model.Node{
			ID:   model.ID(id),
			Tags: tags,
			Lat:  d.degrees(d.latOffset, lat),
			Lon:  d.degrees(d.lonOffset, lon),
		}

		if dic != nil {
			if d.node.Info, err = dic.next(); err != nil {
				return err
			}
		}

		sink.Node(&d.node)
	}

	if lats.more() || lons.more() {
		return fmt.Errorf("%w: dense lat/lon longer than id", ErrParallelArrayLengthMismatch)
	}

	if kvs.more() {
		return fmt.Errorf("%w: trailing tag indices", ErrMalformedTagStream)
	}

	if dic != nil && dic.more() {
		return fmt.Errorf("%w: trailing dense info", ErrParallelArrayLengthMismatch)
	}

	return nil
}

// denseTags consumes one node's tags off the shared index stream: pairs of
// string table indices until a zero terminator.  An absent stream means no
// node in the group is tagged.
func (d *Decoder) denseTags(kvs *packed) (map[string]string, error) {
	if len(kvs.buf) == 0 {
		return nil, nil
	}

	var tags map[string]string

	for {
		if !kvs.more() {
			return nil, fmt.Errorf("%w: stream ended before terminator", ErrMalformedTagStream)
		}

		k, err := kvs.uvarint()
		if err != nil {
			return nil, err
		}

		if k == 0 {
			return tags, nil
		}

		if !kvs.more() {
			return nil, fmt.Errorf("%w: key without value", ErrMalformedTagStream)
		}

		v, err := kvs.uvarint()
		if err != nil {
			return nil, err
		}
		if v == 0 {
			return nil, fmt.Errorf("%w: key without value", ErrMalformedTagStream)
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
}

// denseInfo iterates a DenseInfo message in lockstep with the node arrays.
// Timestamps, changesets, uids and user sids are delta-coded.
type denseInfo struct {
	versions   packed
	timestamps delta
	changesets delta
	uids       delta
	userSids   delta
	visibles   packed

	dateGranularity int64
	strings         stringTable
	info            model.Info
}

func newDenseInfo(buf []byte, dateGranularity int64, strings stringTable) (*denseInfo, error) {
	if buf == nil {
		return nil, nil
	}

	dic := &denseInfo{dateGranularity: dateGranularity, strings: strings}

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			return dic, nil
		} else if err != nil {
			return nil, err
		}

		if typ != wire.TypeBytes {
			if err := s.Skip(typ); err != nil {
				return nil, err
			}

			continue
		}

		b, err := s.Bytes()
		if err != nil {
			return nil, err
		}

		switch num {
		case 1:
			dic.versions.buf = b
		case 2:
			dic.timestamps.buf = b
		case 3:
			dic.changesets.buf = b
		case 4:
			dic.uids.buf = b
		case 5:
			dic.userSids.buf = b
		case 6:
			dic.visibles.buf = b
		}
	}
}

func (dic *denseInfo) more() bool {
	return dic.versions.more() || dic.timestamps.more() || dic.changesets.more() ||
		dic.uids.more() || dic.userSids.more() || dic.visibles.more()
}

// next produces the info record for the next node in the group.  Each array
// is either absent or runs the full length of the id array.
func (dic *denseInfo) next() (*model.Info, error) {
	dic.info = model.Info{Visible: true}

	if len(dic.versions.buf) > 0 {
		if !dic.versions.more() {
			return nil, fmt.Errorf("%w: dense versions shorter than id", ErrParallelArrayLengthMismatch)
		}

		v, err := dic.versions.uvarint()
		if err != nil {
			return nil, err
		}
		dic.info.Version = int32(v)
	}

	if len(dic.timestamps.buf) > 0 {
		if !dic.timestamps.more() {
			return nil, fmt.Errorf("%w: dense timestamps shorter than id", ErrParallelArrayLengthMismatch)
		}

		ts, err := dic.timestamps.next()
		if err != nil {
			return nil, err
		}
		dic.info.Timestamp = toTimestamp(dic.dateGranularity, ts)
	}

	if len(dic.changesets.buf) > 0 {
		if !dic.changesets.more() {
			return nil, fmt.Errorf("%w: dense changesets shorter than id", ErrParallelArrayLengthMismatch)
		}

		cs, err := dic.changesets.next()
		if err != nil {
			return nil, err
		}
		dic.info.Changeset = cs
	}

	if len(dic.uids.buf) > 0 {
		if !dic.uids.more() {
			return nil, fmt.Errorf("%w: dense uids shorter than id", ErrParallelArrayLengthMismatch)
		}

		uid, err := dic.uids.next()
		if err != nil {
			return nil, err
		}
		dic.info.UID = model.UID(uid)
	}

	if len(dic.userSids.buf) > 0 {
		if !dic.userSids.more() {
			return nil, fmt.Errorf("%w: dense user sids shorter than id", ErrParallelArrayLengthMismatch)
		}

		sid, err := dic.userSids.next()
		if err != nil {
			return nil, err
		}

		if dic.info.User, err = dic.strings.get(uint64(sid)); err != nil {
			return nil, err
		}
	}

	if len(dic.visibles.buf) > 0 {
		if !dic.visibles.more() {
			return nil, fmt.Errorf("%w: dense visibles shorter than id", ErrParallelArrayLengthMismatch)
		}

		v, err := dic.visibles.uvarint()
		if err != nil {
			return nil, err
		}
		dic.info.Visible = v != 0
	}

	return &dic.info, nil
}
