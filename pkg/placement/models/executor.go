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

// ExecutorKey identifies an executor inside its job by its task range.
type ExecutorKey struct {
	Begin int
	End   int
}

// Contains returns true if the task belongs to the range.
func (k ExecutorKey) Contains(task int) bool {
	return task >= k.Begin && task <= k.End
}

func (k ExecutorKey) String() string {
	return fmt.Sprintf("[%d, %d]", k.Begin, k.End)
}

// Executor is a contiguous range of tasks of a job, always placed together.
type Executor struct {
	JobID string
	Key   ExecutorKey
	// Load is measured in cycles per second.
	Load int64
}

// NewExecutor creates an executor for the tasks [begin, end].
func NewExecutor(jobID string, begin, end int, load int64) *Executor {
	return &Executor{
		JobID: jobID,
		Key:   ExecutorKey{Begin: begin, End: end},
		Load:  load,
	}
}

func (e *Executor) String() string {
	return fmt.Sprintf("%s%s load %d", e.JobID, e.Key, e.Load)
}

// ExecutorPair is an undirected traffic edge between two executors of the
// same job. Traffic is in tuples per second.
type ExecutorPair struct {
	Source      *Executor
	Destination *Executor
	Traffic     int64
}

// Other returns the executor on the opposite end of the edge from e, or nil
// if e is not an endpoint.
func (p *ExecutorPair) Other(e *Executor) *Executor {
	switch e.Key {
	case p.Source.Key:
		return p.Destination
	case p.Destination.Key:
		return p.Source
	}
	return nil
}

func (p *ExecutorPair) String() string {
	return fmt.Sprintf("%s -> %s: %d", p.Source.Key, p.Destination.Key, p.Traffic)
}
