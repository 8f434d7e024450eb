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
	"unsafe"

	"m4o.io/osmpbf/internal/wire"
)

// stringTable is the per-block interned string array.  Entries are views
// into the block buffer, so the table is only valid while the buffer is.
// Index 0 is the empty string and doubles as the terminator in dense tag
// streams.
type stringTable []string

// load rebuilds the table from an encoded StringTable message body.
func (t *stringTable) load(buf []byte) error {
	*t = (*t)[:0]

	s := wire.NewScanner(buf)

	for {
		num, typ, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}

		if num != 1 || typ != wire.TypeBytes {
			if err := s.Skip(typ); err != nil {
				return err
			}

			continue
		}

		b, err := s.Bytes()
		if err != nil {
			return err
		}

		*t = append(*t, view(b))
	}

	if len(*t) > 0 && (*t)[0] != "" {
		return fmt.Errorf("%w: index 0 is not empty", ErrMalformedStringTable)
	}

	return nil
}

// get returns the string at index i, bounds checked.
func (t stringTable) get(i uint64) (string, error) {
	if i >= uint64(len(t)) {
		return "", fmt.Errorf("%w: %d of %d", ErrStringIndexOutOfRange, i, len(t))
	}

	return t[i], nil
}

// view reinterprets b as a string without copying.  The caller owns the
// lifetime: the string is valid only while the backing buffer is.
func view(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	return unsafe.String(&b[0], len(b))
}
