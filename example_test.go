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

package osmpbf_test

import (
	"bytes"
	"context"
	"fmt"

	"m4o.io/osmpbf"
	"m4o.io/osmpbf/model"
)

type tally struct {
	nodes, ways, relations int
}

func (t *tally) Header(*model.Header)     {}
func (t *tally) Node(*model.Node)         { t.nodes++ }
func (t *tally) Way(*model.Way)           { t.ways++ }
func (t *tally) Relation(*model.Relation) { t.relations++ }

func ExampleDecoder_Parse() {
	in := bytes.NewReader(smallExtractStream)

	var t tally

	d := osmpbf.NewDecoder(in, osmpbf.WithMaxWorkers(2))
	if err := d.Parse(context.Background(), &t); err != nil {
		fmt.Println(err)

		return
	}

	fmt.Printf("%d nodes, %d ways, %d relations\n", t.nodes, t.ways, t.relations)
	// Output: 3 nodes, 1 ways, 1 relations
}
