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
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Tunables are the per job knobs of the capacity model and of the
// reschedule gate.
type Tunables struct {
	// Alpha interpolates the executors per slot between the tightest
	// packing (0) and the loosest (1).
	Alpha float64
	// Beta interpolates the number of nodes used by the job.
	Beta float64
	// Gamma bounds the load of a slot to Gamma times the average slot
	// load. Negative values disable the bound.
	Gamma float64
	// Delta interpolates the slots of the job on a single node.
	Delta float64
	// TrafficImprovement is the percentage of inter-node traffic a new
	// placement must save to be applied.
	TrafficImprovement int
	// RescheduleTimeout is the minimum time between two applied placements.
	RescheduleTimeout time.Duration
}

// DefaultTunables returns the capacity model defaults. The reschedule gate
// values are left to the service configuration.
func DefaultTunables() Tunables {
	return Tunables{
		Alpha: 0,
		Beta:  1,
		Gamma: -1,
		Delta: 0,
	}
}

// GammaEnabled returns true if the slot load bound is active.
func (t Tunables) GammaEnabled() bool {
	return t.Gamma >= 0
}

// JobOptions carries what is needed to build a Job for one run.
type JobOptions struct {
	ID        string
	Executors []*Executor
	Tunables  Tunables
	// Workers is the number of worker slots the job asked for.
	Workers int
	// Nodes is the number of nodes in the cluster.
	Nodes int
	// TotalLoad is the load of all executors. When zero the sum of the
	// executor loads is used.
	TotalLoad int64
}

// Job is a job taking part in a placement run together with its capacity
// model. The limits are computed once at construction.
type Job struct {
	ID       string
	Tunables Tunables

	executors []*Executor
	byKey     map[ExecutorKey]*Executor
	slots     []*Slot
	slotOf    map[ExecutorKey]*Slot
	totalLoad int64

	maxExecutorsPerSlot int
	maxLoadPerSlot      int64
	nodesToUse          int
	maxSlotsPerNode     int

	listener UnitListener
}

// NewJob builds the job, its slots and its capacity model. The job gets
// min(workers, executors) empty slots.
func NewJob(opts JobOptions) (*Job, error) {
	if len(opts.Executors) == 0 {
		return nil, errors.Wrap(ErrNoExecutors, opts.ID)
	}
	if opts.Workers <= 0 {
		return nil, errors.Wrap(ErrNoWorkers, opts.ID)
	}

	j := &Job{
		ID:        opts.ID,
		Tunables:  opts.Tunables,
		executors: make([]*Executor, len(opts.Executors)),
		byKey:     make(map[ExecutorKey]*Executor, len(opts.Executors)),
		slotOf:    make(map[ExecutorKey]*Slot, len(opts.Executors)),
	}
	copy(j.executors, opts.Executors)
	sort.SliceStable(j.executors, func(a, b int) bool {
		return j.executors[a].Key.Begin < j.executors[b].Key.Begin
	})

	var sum int64
	for i, e := range j.executors {
		if e.Key.Begin > e.Key.End {
			return nil, errors.Errorf("job %s: invalid executor range %s", j.ID, e.Key)
		}
		if i > 0 && j.executors[i-1].Key.End >= e.Key.Begin {
			return nil, errors.Errorf("job %s: executor %s overlaps %s",
				j.ID, e.Key, j.executors[i-1].Key)
		}
		e.JobID = j.ID
		j.byKey[e.Key] = e
		sum += e.Load
	}
	j.totalLoad = opts.TotalLoad
	if j.totalLoad == 0 {
		j.totalLoad = sum
	}

	slotCount := opts.Workers
	if len(j.executors) < slotCount {
		slotCount = len(j.executors)
	}
	j.slots = make([]*Slot, slotCount)
	for i := range j.slots {
		j.slots[i] = newSlot(j, i)
	}

	j.computeLimits(opts.Nodes)
	return j, nil
}

func (j *Job) computeLimits(nodes int) {
	e := len(j.executors)
	s := len(j.slots)

	perSlot := ceilDiv(e, s)
	j.maxExecutorsPerSlot = perSlot + ceil(j.Tunables.Alpha*float64((e-s+1)-perSlot))

	j.maxLoadPerSlot = -1
	if j.Tunables.GammaEnabled() {
		j.maxLoadPerSlot = int64(j.Tunables.Gamma * float64(j.totalLoad) / float64(s))
	}

	n := nodes
	if s < n {
		n = s
	}
	if n <= 0 {
		j.nodesToUse = 0
		j.maxSlotsPerNode = 0
		return
	}
	perNode := ceilDiv(s, n)
	j.nodesToUse = perNode + ceil(j.Tunables.Beta*float64(n-perNode))

	perUsedNode := ceilDiv(s, j.nodesToUse)
	j.maxSlotsPerNode = perUsedNode +
		ceil(j.Tunables.Delta*float64((s-j.nodesToUse+1)-perUsedNode))
}

// SetListener registers the listener notified on every slot mutation.
func (j *Job) SetListener(l UnitListener) {
	j.listener = l
}

// Executors returns the executors ordered by first task.
func (j *Job) Executors() []*Executor {
	return j.executors
}

// Executor returns the executor with the given range, or nil.
func (j *Job) Executor(key ExecutorKey) *Executor {
	return j.byKey[key]
}

// ExecutorForTask returns the executor whose range holds the task, or nil.
func (j *Job) ExecutorForTask(task int) *Executor {
	i := sort.Search(len(j.executors), func(i int) bool {
		return j.executors[i].Key.End >= task
	})
	if i < len(j.executors) && j.executors[i].Key.Contains(task) {
		return j.executors[i]
	}
	return nil
}

// Slots returns the slots ordered by index.
func (j *Job) Slots() []*Slot {
	return j.slots
}

// SlotOf returns the slot currently holding the executor, or nil.
func (j *Job) SlotOf(e *Executor) *Slot {
	return j.slotOf[e.Key]
}

// TotalLoad is the load of all the executors of the job.
func (j *Job) TotalLoad() int64 {
	return j.totalLoad
}

// MaxExecutorsPerSlot is the most executors a slot of the job may hold.
func (j *Job) MaxExecutorsPerSlot() int {
	return j.maxExecutorsPerSlot
}

// MaxLoadPerSlot is the most load a slot of the job may hold. It is
// negative when the bound is disabled.
func (j *Job) MaxLoadPerSlot() int64 {
	return j.maxLoadPerSlot
}

// NodesToUse is the number of distinct nodes the job should span.
func (j *Job) NodesToUse() int {
	return j.nodesToUse
}

// MaxSlotsPerNode is the most slots of the job a single node may hold.
func (j *Job) MaxSlotsPerNode() int {
	return j.maxSlotsPerNode
}

func (j *Job) String() string {
	return fmt.Sprintf("%s (executors %d, slots %d, max executors/slot %d, "+
		"max load/slot %d, nodes to use %d, max slots/node %d)",
		j.ID, len(j.executors), len(j.slots), j.maxExecutorsPerSlot,
		j.maxLoadPerSlot, j.nodesToUse, j.maxSlotsPerNode)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// ceil ignores float noise below 1e-9 so that e.g. 0.1*30 stays 3.
func ceil(x float64) int {
	return int(math.Ceil(x - 1e-9))
}
