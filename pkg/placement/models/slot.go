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
	"strings"

	"github.com/pkg/errors"
)

// SlotKey identifies a slot by its job and its index within the job.
type SlotKey struct {
	JobID string
	Index int
}

// Less orders slot keys by job, then index.
func (k SlotKey) Less(o SlotKey) bool {
	if k.JobID != o.JobID {
		return k.JobID < o.JobID
	}
	return k.Index < o.Index
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s#%d", k.JobID, k.Index)
}

// Slot is a worker of a job holding a set of its executors.
type Slot struct {
	Key SlotKey

	job       *Job
	executors map[ExecutorKey]*Executor
	load      int64
	node      *Node
}

func newSlot(job *Job, index int) *Slot {
	return &Slot{
		Key:       SlotKey{JobID: job.ID, Index: index},
		job:       job,
		executors: make(map[ExecutorKey]*Executor),
	}
}

// Job returns the job owning the slot.
func (s *Slot) Job() *Job {
	return s.job
}

// Load is the sum of the loads of the executors in the slot.
func (s *Slot) Load() int64 {
	return s.load
}

// Len returns the number of executors in the slot.
func (s *Slot) Len() int {
	return len(s.executors)
}

// Empty returns true if the slot holds no executor.
func (s *Slot) Empty() bool {
	return len(s.executors) == 0
}

// Node returns the node the slot is placed on, or nil.
func (s *Slot) Node() *Node {
	return s.node
}

// Contains returns true if the executor is in the slot.
func (s *Slot) Contains(e *Executor) bool {
	_, ok := s.executors[e.Key]
	return ok
}

// Executors returns the executors of the slot ordered by first task.
func (s *Slot) Executors() []*Executor {
	result := make([]*Executor, 0, len(s.executors))
	for _, e := range s.executors {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key.Begin < result[j].Key.Begin
	})
	return result
}

// CanAccept returns true if count more executors with the given total load
// fit within the job limits.
func (s *Slot) CanAccept(count int, load int64) bool {
	if s.job.maxExecutorsPerSlot-len(s.executors) < count {
		return false
	}
	max := s.job.maxLoadPerSlot
	return max < 0 || s.load+load <= max
}

// Fits returns true if all the given executors can be added together.
func (s *Slot) Fits(executors ...*Executor) bool {
	var load int64
	for _, e := range executors {
		load += e.Load
	}
	return s.CanAccept(len(executors), load)
}

// Assign adds the executor to the slot.
func (s *Slot) Assign(e *Executor) error {
	if e.JobID != s.Key.JobID {
		return errors.Errorf("executor %s does not belong to job %s", e, s.Key.JobID)
	}
	if cur := s.job.slotOf[e.Key]; cur != nil {
		return errors.Wrapf(ErrAlreadyAssigned, "executor %s in slot %s", e, cur.Key)
	}
	if !s.CanAccept(1, e.Load) {
		return errors.Wrapf(ErrInfeasible, "executor %s does not fit slot %s", e, s)
	}

	s.executors[e.Key] = e
	s.load += e.Load
	s.job.slotOf[e.Key] = s
	if s.job.listener != nil {
		s.job.listener.UnitAssigned(s, e)
	}
	return nil
}

// Remove takes the executor out of the slot.
func (s *Slot) Remove(e *Executor) error {
	if !s.Contains(e) {
		return errors.Wrapf(ErrNotAssigned, "executor %s in slot %s", e, s.Key)
	}

	delete(s.executors, e.Key)
	s.load -= e.Load
	delete(s.job.slotOf, e.Key)
	if s.job.listener != nil {
		s.job.listener.UnitRemoved(s, e)
	}
	return nil
}

func (s *Slot) String() string {
	keys := make([]string, 0, len(s.executors))
	for _, e := range s.Executors() {
		keys = append(keys, e.Key.String())
	}
	return fmt.Sprintf("{%s load %d: %s}", s.Key, s.load, strings.Join(keys, " "))
}
