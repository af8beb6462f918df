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

package models

import (
	"fmt"
)

// SlotPairKey identifies a slot pair regardless of order.
type SlotPairKey struct {
	JobID  string
	First  int
	Second int
}

// NewSlotPairKey returns the key of the pair joining two slots of a job.
func NewSlotPairKey(a, b *Slot) SlotPairKey {
	first, second := a.Key.Index, b.Key.Index
	if second < first {
		first, second = second, first
	}
	return SlotPairKey{JobID: a.Key.JobID, First: first, Second: second}
}

// SlotPair is the traffic between two slots of the same job.
type SlotPair struct {
	First   *Slot
	Second  *Slot
	Traffic int64
}

// Key returns the order independent key of the pair.
func (p *SlotPair) Key() SlotPairKey {
	return NewSlotPairKey(p.First, p.Second)
}

// Other returns the slot on the opposite end from s, or nil.
func (p *SlotPair) Other(s *Slot) *Slot {
	switch s.Key {
	case p.First.Key:
		return p.Second
	case p.Second.Key:
		return p.First
	}
	return nil
}

func (p *SlotPair) String() string {
	return fmt.Sprintf("%s <-> %s: %d", p.First.Key, p.Second.Key, p.Traffic)
}

// NodePairKey identifies a node pair regardless of order.
type NodePairKey struct {
	First  string
	Second string
}

// NewNodePairKey returns the key of the pair joining two nodes.
func NewNodePairKey(a, b *Node) NodePairKey {
	if b.Name < a.Name {
		a, b = b, a
	}
	return NodePairKey{First: a.Name, Second: b.Name}
}

// NodePair is the traffic between two nodes.
type NodePair struct {
	First   *Node
	Second  *Node
	Traffic int64
}

// Key returns the order independent key of the pair.
func (p *NodePair) Key() NodePairKey {
	return NewNodePairKey(p.First, p.Second)
}

func (p *NodePair) String() string {
	return fmt.Sprintf("%s <-> %s: %d", p.First.Name, p.Second.Name, p.Traffic)
}
