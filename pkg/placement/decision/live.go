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

package decision

import (
	"sort"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

// liveState is what the stored telemetry says about the current placement.
type liveState struct {
	// interNodeTraffic is the traffic between executors of the
	// rescheduled jobs sampled on different nodes.
	interNodeTraffic int64
	// nodeLoad is the load sampled on every node.
	nodeLoad map[string]int64
	// retainedLoad is the load of every node that belongs to jobs which
	// are not being rescheduled.
	retainedLoad map[string]int64
}

func newLiveState(
	loads []*storage.ExecutorLoad,
	traffic []*storage.TaskTraffic,
	rescheduled map[string]bool) *liveState {
	s := &liveState{
		nodeLoad:     make(map[string]int64),
		retainedLoad: make(map[string]int64),
	}

	byJob := make(map[string][]*storage.ExecutorLoad)
	for _, l := range loads {
		byJob[l.JobID] = append(byJob[l.JobID], l)
		s.nodeLoad[l.Node] += l.Load
		if !rescheduled[l.JobID] {
			s.retainedLoad[l.Node] += l.Load
		}
	}
	for _, ls := range byJob {
		sort.Slice(ls, func(i, j int) bool {
			return ls[i].Begin < ls[j].Begin
		})
	}

	for _, t := range traffic {
		if !rescheduled[t.JobID] {
			continue
		}
		ls := byJob[t.JobID]
		src := executorForTask(ls, t.Source)
		dst := executorForTask(ls, t.Destination)
		if src == nil || dst == nil {
			continue
		}
		if src.Node != dst.Node {
			s.interNodeTraffic += t.Traffic
		}
	}
	return s
}

// overloaded returns the nodes whose sampled load exceeds their capacity,
// by name.
func (s *liveState) overloaded(nodes []*storage.NodeInfo) []*storage.NodeInfo {
	var result []*storage.NodeInfo
	for _, n := range nodes {
		if s.nodeLoad[n.Name] > n.Capacity {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// executorForTask finds the executor holding the task in loads sorted by
// first task.
func executorForTask(loads []*storage.ExecutorLoad, task int) *storage.ExecutorLoad {
	i := sort.Search(len(loads), func(i int) bool {
		return loads[i].End >= task
	})
	if i < len(loads) && loads[i].Begin <= task && task <= loads[i].End {
		return loads[i]
	}
	return nil
}
