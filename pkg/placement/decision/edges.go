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

// Package decision turns telemetry into a candidate placement, decides
// whether it is worth applying and commits it to the live cluster.
package decision

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

// ErrIncompleteTelemetry is returned when the traffic of a job refers to
// tasks that none of its executors holds.
var ErrIncompleteTelemetry = errors.New("incomplete telemetry")

// BuildExecutors converts the stored loads of a job into executors.
func BuildExecutors(jobID string, loads []*storage.ExecutorLoad) []*models.Executor {
	executors := make([]*models.Executor, 0, len(loads))
	for _, l := range loads {
		executors = append(executors, models.NewExecutor(jobID, l.Begin, l.End, l.Load))
	}
	return executors
}

// BuildPairs maps the task traffic of a job onto its executors. Rows
// between the same ordered executor pair are summed and rows inside a
// single executor are dropped. The pairs are sorted by descending traffic.
func BuildPairs(job *models.Job, rows []*storage.TaskTraffic) ([]*models.ExecutorPair, error) {
	type edge struct {
		source      models.ExecutorKey
		destination models.ExecutorKey
	}

	index := make(map[edge]*models.ExecutorPair)
	var pairs []*models.ExecutorPair
	for _, r := range rows {
		src := job.ExecutorForTask(r.Source)
		dst := job.ExecutorForTask(r.Destination)
		if src == nil || dst == nil {
			return nil, errors.Wrapf(ErrIncompleteTelemetry,
				"job %s: no executor for traffic %d -> %d", job.ID, r.Source, r.Destination)
		}
		if src == dst {
			continue
		}
		k := edge{source: src.Key, destination: dst.Key}
		if p, ok := index[k]; ok {
			p.Traffic += r.Traffic
			continue
		}
		p := &models.ExecutorPair{Source: src, Destination: dst, Traffic: r.Traffic}
		index[k] = p
		pairs = append(pairs, p)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Traffic > pairs[j].Traffic
	})
	return pairs, nil
}
