// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package traffic

// ranking keeps pairs sorted by descending traffic. A traffic change moves
// the touched pair by swapping it with its neighbours, so pairs with equal
// traffic keep the order in which they were discovered.
type ranking[K comparable, P any] struct {
	keys    []K
	order   []P
	pos     map[K]int
	key     func(P) K
	traffic func(P) *int64
}

func newRanking[K comparable, P any](key func(P) K, traffic func(P) *int64) *ranking[K, P] {
	return &ranking[K, P]{
		pos:     make(map[K]int),
		key:     key,
		traffic: traffic,
	}
}

func (r *ranking[K, P]) get(k K) (P, bool) {
	i, ok := r.pos[k]
	if !ok {
		var zero P
		return zero, false
	}
	return r.order[i], true
}

// insert appends a pair. Its traffic must not exceed the last one.
func (r *ranking[K, P]) insert(p P) {
	k := r.key(p)
	r.pos[k] = len(r.order)
	r.keys = append(r.keys, k)
	r.order = append(r.order, p)
}

func (r *ranking[K, P]) adjust(k K, delta int64) {
	i := r.pos[k]
	*r.traffic(r.order[i]) += delta

	switch {
	case delta > 0:
		for i > 0 && r.value(i-1) < r.value(i) {
			r.swap(i-1, i)
			i--
		}
	case delta < 0:
		for i < len(r.order)-1 && r.value(i+1) > r.value(i) {
			r.swap(i, i+1)
			i++
		}
	}
}

func (r *ranking[K, P]) value(i int) int64 {
	return *r.traffic(r.order[i])
}

func (r *ranking[K, P]) swap(i, j int) {
	r.keys[i], r.keys[j] = r.keys[j], r.keys[i]
	r.order[i], r.order[j] = r.order[j], r.order[i]
	r.pos[r.keys[i]] = i
	r.pos[r.keys[j]] = j
}

func (r *ranking[K, P]) list() []P {
	result := make([]P, len(r.order))
	copy(result, r.order)
	return result
}

func (r *ranking[K, P]) len() int {
	return len(r.order)
}
