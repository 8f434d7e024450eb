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
	"m4o.io/osmpbf/internal/wire"
)

// packed is a cursor over a packed repeated field.  The zero value reads an
// absent field as empty.
type packed struct {
	buf []byte
	pos int
}

func (p *packed) more() bool {
	return p.pos < len(p.buf)
}

func (p *packed) uvarint() (uint64, error) {
	v, n, err := wire.Uvarint(p.buf[p.pos:])
	if err != nil {
		return 0, err
	}
	p.pos += n

	return v, nil
}

func (p *packed) svarint() (int64, error) {
	v, err := p.uvarint()
	if err != nil {
		return 0, err
	}

	return wire.Unzigzag(v), nil
}

// delta is a running delta accumulator over a packed zig-zag field.
type delta struct {
	packed
	acc int64
}

// next decodes the next delta and returns the accumulated value.
func (d *delta) next() (int64, error) {
	v, err := d.svarint()
	if err != nil {
		return 0, err
	}
	d.acc += v

	return d.acc, nil
}
