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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

func newTestJob(t *testing.T) *models.Job {
	job, err := models.NewJob(models.JobOptions{
		ID: "a",
		Executors: BuildExecutors("a", []*storage.ExecutorLoad{
			{JobID: "a", Begin: 4, End: 5, Load: 30},
			{JobID: "a", Begin: 1, End: 2, Load: 10},
			{JobID: "a", Begin: 3, End: 3, Load: 20},
		}),
		Tunables: models.DefaultTunables(),
		Workers:  2,
		Nodes:    2,
	})
	require.NoError(t, err)
	return job
}

func TestBuildExecutors(t *testing.T) {
	job := newTestJob(t)
	assert.Len(t, job.Executors(), 3)
	assert.Equal(t, int64(60), job.TotalLoad())
	assert.Equal(t, "a", job.ExecutorForTask(2).JobID)
	assert.Equal(t, int64(30), job.ExecutorForTask(5).Load)
}

func TestBuildPairs(t *testing.T) {
	job := newTestJob(t)
	pairs, err := BuildPairs(job, []*storage.TaskTraffic{
		{JobID: "a", Source: 1, Destination: 3, Traffic: 10},
		{JobID: "a", Source: 2, Destination: 3, Traffic: 5},
		{JobID: "a", Source: 3, Destination: 4, Traffic: 20},
		{JobID: "a", Source: 4, Destination: 5, Traffic: 7},
		{JobID: "a", Source: 3, Destination: 1, Traffic: 4},
	})
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	key := func(b, e int) models.ExecutorKey {
		return models.ExecutorKey{Begin: b, End: e}
	}
	assert.Equal(t, key(3, 3), pairs[0].Source.Key)
	assert.Equal(t, key(4, 5), pairs[0].Destination.Key)
	assert.Equal(t, int64(20), pairs[0].Traffic)

	assert.Equal(t, key(1, 2), pairs[1].Source.Key)
	assert.Equal(t, key(3, 3), pairs[1].Destination.Key)
	assert.Equal(t, int64(15), pairs[1].Traffic)

	assert.Equal(t, key(3, 3), pairs[2].Source.Key)
	assert.Equal(t, key(1, 2), pairs[2].Destination.Key)
	assert.Equal(t, int64(4), pairs[2].Traffic)
}

func TestBuildPairsIncompleteTelemetry(t *testing.T) {
	job := newTestJob(t)
	_, err := BuildPairs(job, []*storage.TaskTraffic{
		{JobID: "a", Source: 1, Destination: 3, Traffic: 10},
		{JobID: "a", Source: 9, Destination: 3, Traffic: 5},
	})
	assert.Equal(t, ErrIncompleteTelemetry, errors.Cause(err))
}

func TestLiveState(t *testing.T) {
	loads := []*storage.ExecutorLoad{
		{JobID: "a", Begin: 2, End: 2, Load: 20, Node: "n2"},
		{JobID: "a", Begin: 1, End: 1, Load: 10, Node: "n1"},
		{JobID: "b", Begin: 1, End: 1, Load: 5, Node: "n1"},
		{JobID: "b", Begin: 2, End: 2, Load: 5, Node: "n2"},
	}
	traffic := []*storage.TaskTraffic{
		{JobID: "a", Source: 1, Destination: 2, Traffic: 30},
		{JobID: "a", Source: 1, Destination: 1, Traffic: 3},
		{JobID: "b", Source: 1, Destination: 7, Traffic: 4},
		{JobID: "b", Source: 1, Destination: 2, Traffic: 1000},
	}
	s := newLiveState(loads, traffic, map[string]bool{"a": true})

	// Traffic of b crosses nodes but b is not rescheduled.
	assert.Equal(t, int64(30), s.interNodeTraffic)
	assert.Equal(t, map[string]int64{"n1": 15, "n2": 25}, s.nodeLoad)
	assert.Equal(t, map[string]int64{"n1": 5, "n2": 5}, s.retainedLoad)

	overloaded := s.overloaded([]*storage.NodeInfo{
		{Name: "n2", Capacity: 30},
		{Name: "n1", Capacity: 10},
	})
	require.Len(t, overloaded, 1)
	assert.Equal(t, "n1", overloaded[0].Name)

	s = newLiveState(loads, traffic, map[string]bool{"a": true, "b": true})
	assert.Equal(t, int64(1030), s.interNodeTraffic)
	assert.Empty(t, s.retainedLoad)
}

func TestExecutorForTask(t *testing.T) {
	loads := []*storage.ExecutorLoad{
		{Begin: 1, End: 2},
		{Begin: 5, End: 8},
	}
	assert.Equal(t, loads[0], executorForTask(loads, 2))
	assert.Equal(t, loads[1], executorForTask(loads, 5))
	assert.Nil(t, executorForTask(loads, 3))
	assert.Nil(t, executorForTask(loads, 9))
	assert.Nil(t, executorForTask(nil, 1))
}
