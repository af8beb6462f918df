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

// Package cluster is the view of the live runtime that the scheduler reads
// assignments from and commits placements to.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is a running job as seen by the runtime.
type Job struct {
	ID      string
	Name    string
	Workers int
	// Conf is the runtime configuration of the job. The scheduler reads
	// its tunables from it.
	Conf map[string]string
}

// Endpoint is a worker slot of a host, identified by its port.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Less orders endpoints by host then port.
func (e Endpoint) Less(o Endpoint) bool {
	if e.Host != o.Host {
		return e.Host < o.Host
	}
	return e.Port < o.Port
}

// Executor is a task range of a job and the endpoint it runs on.
type Executor struct {
	JobID     string
	Begin     int
	End       int
	Component string
	Endpoint  Endpoint
}

// Assigned reports whether the executor runs on an endpoint. Executors
// released by a commit that did not complete stay unassigned until the
// next one places them.
func (e *Executor) Assigned() bool {
	return e.Endpoint.Host != ""
}

// Description renders the executor as component[begin,end].
func (e *Executor) Description() string {
	return fmt.Sprintf("%s[%d,%d]", e.Component, e.Begin, e.End)
}

// Snapshot is the live assignment of every job and the worker ports of
// every host.
type Snapshot struct {
	Executors []*Executor
	Ports     map[string][]int
}

// Executor returns the live executor of a job with the given range, or nil.
func (s *Snapshot) Executor(jobID string, begin, end int) *Executor {
	for _, e := range s.Executors {
		if e.JobID == jobID && e.Begin == begin && e.End == end {
			return e
		}
	}
	return nil
}

// Endpoints returns the endpoints used by the given jobs, sorted.
// Unassigned executors hold no endpoint.
func (s *Snapshot) Endpoints(jobIDs ...string) []Endpoint {
	want := make(map[string]bool, len(jobIDs))
	for _, id := range jobIDs {
		want[id] = true
	}
	seen := make(map[Endpoint]bool)
	var result []Endpoint
	for _, e := range s.Executors {
		if !want[e.JobID] || !e.Assigned() || seen[e.Endpoint] {
			continue
		}
		seen[e.Endpoint] = true
		result = append(result, e.Endpoint)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Less(result[j])
	})
	return result
}

// FreePorts returns the sorted ports of the host that are free once the
// given jobs have released their endpoints.
func (s *Snapshot) FreePorts(host string, released ...string) []int {
	skip := make(map[string]bool, len(released))
	for _, id := range released {
		skip[id] = true
	}
	used := make(map[int]bool)
	for _, e := range s.Executors {
		if e.Endpoint.Host == host && !skip[e.JobID] {
			used[e.Endpoint.Port] = true
		}
	}
	var free []int
	for _, p := range s.Ports[host] {
		if !used[p] {
			free = append(free, p)
		}
	}
	sort.Ints(free)
	return free
}

// Render serializes the assignment as (host:port e1, e2) groups, with
// hosts, ports and executors sorted. It returns an empty string when
// nothing is assigned.
func (s *Snapshot) Render() string {
	byEndpoint := make(map[Endpoint][]string)
	for _, e := range s.Executors {
		if !e.Assigned() {
			continue
		}
		byEndpoint[e.Endpoint] = append(byEndpoint[e.Endpoint], e.Description())
	}
	endpoints := make([]Endpoint, 0, len(byEndpoint))
	for ep := range byEndpoint {
		endpoints = append(endpoints, ep)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].Less(endpoints[j])
	})

	var sb strings.Builder
	for _, ep := range endpoints {
		descs := byEndpoint[ep]
		sort.Strings(descs)
		fmt.Fprintf(&sb, "(%s %s)", ep, strings.Join(descs, ", "))
	}
	return sb.String()
}

// Client reads the live assignment and commits new placements.
type Client interface {
	// Jobs returns the jobs currently running.
	Jobs(ctx context.Context) ([]*Job, error)
	// Snapshot returns the live assignment.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Free releases an endpoint, stopping whatever runs on it.
	Free(ctx context.Context, endpoint Endpoint) error
	// Assign starts the executors of a job on an endpoint.
	Assign(ctx context.Context, jobID string, endpoint Endpoint, executors []*Executor) error
}
