//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
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

package receiver

import (
	lru "github.com/hashicorp/golang-lru"
)

// tsSet is a bounded set of timestamps. When full, the timestamp
// added longest ago is forgotten, which in practice is the oldest one.
type tsSet struct {
	*lru.Cache
}

func newTsSet(size int) (*tsSet, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &tsSet{Cache: c}, nil
}

func (s *tsSet) add(ts float64)      { s.Add(ts, struct{}{}) }
func (s *tsSet) has(ts float64) bool { return s.Contains(ts) }
