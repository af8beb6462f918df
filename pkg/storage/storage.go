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

package storage

import (
	"context"
	"time"
)

// ExecutorLoad is the average load of an executor over the last window and
// the node it was running on when sampled.
type ExecutorLoad struct {
	JobID string `db:"job_id"`
	Begin int    `db:"begin_task"`
	End   int    `db:"end_task"`
	// Load is measured in cycles per second.
	Load int64  `db:"load"`
	Node string `db:"node"`
}

// TaskTraffic is the average rate of tuples sent from one task to another
// over the last window.
type TaskTraffic struct {
	JobID       string `db:"job_id"`
	Source      int    `db:"source_task"`
	Destination int    `db:"destination_task"`
	// Traffic is measured in tuples per second.
	Traffic int64 `db:"traffic"`
}

// NodeInfo is a worker node as registered by its monitor.
type NodeInfo struct {
	Name     string `db:"name"`
	Capacity int64  `db:"capacity"`
	Cores    int    `db:"cores"`
}

// AssignmentRecord is an applied assignment as written to the audit sink.
type AssignmentRecord struct {
	ID         string
	Time       time.Time
	Jobs       []string
	Assignment string
}

// TelemetryStore is the read side of the persisted load and traffic
// aggregates together with the node inventory.
type TelemetryStore interface {
	// Nodes returns all the registered nodes.
	Nodes(ctx context.Context) ([]*NodeInfo, error)
	// JobIDs returns the jobs with stored telemetry.
	JobIDs(ctx context.Context) ([]string, error)
	// TotalLoad returns the summed load of the executors of a job.
	TotalLoad(ctx context.Context, jobID string) (int64, error)
	// ExecutorLoads returns the executors of a job and their load.
	ExecutorLoads(ctx context.Context, jobID string) ([]*ExecutorLoad, error)
	// Traffic returns the task to task traffic of a job.
	Traffic(ctx context.Context, jobID string) ([]*TaskTraffic, error)
	// AllLoads returns the executor loads of every job.
	AllLoads(ctx context.Context) ([]*ExecutorLoad, error)
	// AllTraffic returns the task traffic of every job.
	AllTraffic(ctx context.Context) ([]*TaskTraffic, error)
}

// TelemetryWriter is the write side used by the monitor.
type TelemetryWriter interface {
	// EnsureJob registers the job if it is not known yet.
	EnsureJob(ctx context.Context, jobID string) error
	// StoreLoad inserts or replaces the load of an executor.
	StoreLoad(ctx context.Context, load *ExecutorLoad) error
	// StoreTraffic inserts or replaces the traffic between two tasks.
	StoreTraffic(ctx context.Context, traffic *TaskTraffic) error
	// UpsertNode registers a node or refreshes its capacity.
	UpsertNode(ctx context.Context, node *NodeInfo) error
}

// Resetter clears the aggregates of jobs after they have been rescheduled.
type Resetter interface {
	ResetJobs(ctx context.Context, jobIDs []string) error
}

// AuditStore persists applied assignments.
type AuditStore interface {
	StoreAssignment(ctx context.Context, record *AssignmentRecord) error
}

// Store is the complete persistence surface of the scheduler.
type Store interface {
	TelemetryStore
	TelemetryWriter
	Resetter
	AuditStore
}
