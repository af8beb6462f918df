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

// Package optimizer computes a traffic and load aware placement of the
// executors of a set of jobs, first into the slots of each job and then of
// the slots onto the nodes of the cluster.
package optimizer

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/traffic"
)

// Run is the state of a single optimization run. It is built fresh for
// every run and is not safe for concurrent use.
type Run struct {
	Ledger *traffic.Ledger

	jobs  []*models.Job
	nodes []*models.Node
}

// NewRun creates a run over the given nodes. Nodes must be empty.
func NewRun(nodes []*models.Node) *Run {
	r := &Run{
		Ledger: traffic.NewLedger(),
		nodes:  make([]*models.Node, len(nodes)),
	}
	copy(r.nodes, nodes)
	sort.Slice(r.nodes, func(i, j int) bool {
		return r.nodes[i].Name < r.nodes[j].Name
	})
	for _, n := range r.nodes {
		r.Ledger.AddNode(n)
	}
	return r
}

// AddJob adds a job and its static traffic edges to the run.
func (r *Run) AddJob(job *models.Job, pairs []*models.ExecutorPair) error {
	if err := r.Ledger.AddJob(job, pairs); err != nil {
		return err
	}
	r.jobs = append(r.jobs, job)
	sort.Slice(r.jobs, func(i, j int) bool {
		return r.jobs[i].ID < r.jobs[j].ID
	})
	return nil
}

// Jobs returns the jobs of the run by id.
func (r *Run) Jobs() []*models.Job {
	return r.jobs
}

// Nodes returns the nodes of the run by name.
func (r *Run) Nodes() []*models.Node {
	return r.nodes
}

// Options tune the optimizer.
type Options struct {
	// FairnessIterationCap bounds the number of migrations of the fairness
	// pass per job. Zero means the number of nodes plus one.
	FairnessIterationCap int
}

// Result is the placement computed by a run.
type Result struct {
	// InterNodeTraffic is the traffic between distinct nodes.
	InterNodeTraffic int64
	// JobTraffic is the traffic between distinct slots, per job.
	JobTraffic map[string]int64
	// Nodes are the nodes holding at least one slot, by name.
	Nodes []*models.Node
	// Duration is the time spent computing the placement.
	Duration time.Duration
}

// Node returns the node with the given name if it holds any slot.
func (r *Result) Node(name string) (*models.Node, bool) {
	i := sort.Search(len(r.Nodes), func(i int) bool {
		return r.Nodes[i].Name >= name
	})
	if i < len(r.Nodes) && r.Nodes[i].Name == name {
		return r.Nodes[i], true
	}
	return nil, false
}

// Engine runs the two placement phases and the fairness pass over a Run.
type Engine struct {
	run  *Run
	opts Options
}

// New creates an engine for the run.
func New(run *Run, opts Options) *Engine {
	return &Engine{
		run:  run,
		opts: opts,
	}
}

// Place computes the placement. It fails with models.ErrInfeasible when an
// executor or a slot cannot be placed anywhere.
func (e *Engine) Place() (*Result, error) {
	start := time.Now()

	if len(e.run.nodes) == 0 {
		return nil, errors.Wrap(models.ErrInfeasible, "no nodes available")
	}

	for _, job := range e.run.jobs {
		if err := e.placeExecutors(job); err != nil {
			return nil, errors.Wrapf(err, "job %s", job.ID)
		}
	}
	log.WithField("jobs", len(e.run.jobs)).Info("executors placed into slots")

	if err := e.placeSlots(); err != nil {
		return nil, err
	}
	log.WithField("inter_node_traffic", e.run.Ledger.InterNodeTraffic()).
		Info("slots placed onto nodes")

	for _, job := range e.run.jobs {
		if err := e.spread(job); err != nil {
			return nil, errors.Wrapf(err, "job %s", job.ID)
		}
	}

	result := &Result{
		InterNodeTraffic: e.run.Ledger.InterNodeTraffic(),
		JobTraffic:       make(map[string]int64, len(e.run.jobs)),
		Duration:         time.Since(start),
	}
	for _, job := range e.run.jobs {
		result.JobTraffic[job.ID] = e.run.Ledger.JobTraffic(job.ID)
	}
	for _, n := range e.run.nodes {
		if n.Available() < n.TotalSlots() {
			result.Nodes = append(result.Nodes, n)
		}
	}
	log.WithFields(log.Fields{
		"inter_node_traffic": result.InterNodeTraffic,
		"nodes_used":         len(result.Nodes),
		"duration":           result.Duration,
	}).Info("placement computed")
	return result, nil
}
