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
	"sort"

	"github.com/pkg/errors"
)

// Node is a host offering a fixed number of worker slots and a load
// capacity. A node is shared by the slots of every job.
type Node struct {
	Name string
	// Capacity is the most load the node can sustain, in cycles per second.
	Capacity int64
	Cores    int

	totalSlots int
	available  int
	load       int64
	slots      map[SlotKey]*Slot
	perJob     map[string]int
	listener   SlotListener
}

// NewNode creates an empty node.
func NewNode(name string, capacity int64, cores, totalSlots int) *Node {
	return &Node{
		Name:       name,
		Capacity:   capacity,
		Cores:      cores,
		totalSlots: totalSlots,
		available:  totalSlots,
		slots:      make(map[SlotKey]*Slot),
		perJob:     make(map[string]int),
	}
}

// SetListener registers the listener notified on every node mutation.
func (n *Node) SetListener(l SlotListener) {
	n.listener = l
}

// Load is the sum of the loads of the slots on the node.
func (n *Node) Load() int64 {
	return n.load
}

// TotalSlots is the number of worker slots of the node.
func (n *Node) TotalSlots() int {
	return n.totalSlots
}

// Available is the number of worker slots still free.
func (n *Node) Available() int {
	return n.available
}

// JobSlotCount returns how many slots of the job the node holds.
func (n *Node) JobSlotCount(jobID string) int {
	return n.perJob[jobID]
}

// Contains returns true if the slot is on the node.
func (n *Node) Contains(s *Slot) bool {
	_, ok := n.slots[s.Key]
	return ok
}

// Slots returns the slots of the node ordered by key.
func (n *Node) Slots() []*Slot {
	result := make([]*Slot, 0, len(n.slots))
	for _, s := range n.slots {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.Less(result[j].Key)
	})
	return result
}

// CanAccept returns true if count more slots of the job carrying the given
// load fit the node capacity, its free worker slots and the job quota.
func (n *Node) CanAccept(job *Job, count int, load int64) bool {
	return n.load+load <= n.Capacity &&
		n.available >= count &&
		n.perJob[job.ID]+count <= job.maxSlotsPerNode
}

// Fits returns true if all the given slots can be added together.
func (n *Node) Fits(slots ...*Slot) bool {
	var load int64
	perJob := make(map[*Job]int, 1)
	for _, s := range slots {
		load += s.load
		perJob[s.job]++
	}
	if n.load+load > n.Capacity || n.available < len(slots) {
		return false
	}
	for job, count := range perJob {
		if n.perJob[job.ID]+count > job.maxSlotsPerNode {
			return false
		}
	}
	return true
}

// Assign places the slot on the node.
func (n *Node) Assign(s *Slot) error {
	if s.node != nil {
		return errors.Wrapf(ErrAlreadyAssigned, "slot %s on node %s", s.Key, s.node.Name)
	}
	if !n.Fits(s) {
		return errors.Wrapf(ErrInfeasible, "slot %s does not fit node %s", s.Key, n)
	}

	n.slots[s.Key] = s
	n.load += s.load
	n.available--
	n.perJob[s.Key.JobID]++
	s.node = n
	if n.listener != nil {
		n.listener.SlotAssigned(n, s)
	}
	return nil
}

// Remove takes the slot off the node.
func (n *Node) Remove(s *Slot) error {
	if !n.Contains(s) {
		return errors.Wrapf(ErrNotAssigned, "slot %s on node %s", s.Key, n.Name)
	}

	delete(n.slots, s.Key)
	n.load -= s.load
	n.available++
	if n.perJob[s.Key.JobID]--; n.perJob[s.Key.JobID] == 0 {
		delete(n.perJob, s.Key.JobID)
	}
	s.node = nil
	if n.listener != nil {
		n.listener.SlotRemoved(n, s)
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("%s (load %d/%d, slots %d/%d)",
		n.Name, n.load, n.Capacity, n.totalSlots-n.available, n.totalSlots)
}
