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

package optimizer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
)

type edge struct {
	src, dst int
	traffic  int64
}

type EngineTestSuite struct {
	suite.Suite
	run *Run
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) newNodes(count, slots int, capacity int64) []*models.Node {
	names := []string{"n1", "n2", "n3", "n4"}
	nodes := make([]*models.Node, count)
	for i := range nodes {
		nodes[i] = models.NewNode(names[i], capacity, 4, slots)
	}
	suite.run = NewRun(nodes)
	return nodes
}

// addJob adds a job whose executors cover one task each and load 10.
func (suite *EngineTestSuite) addJob(
	id string,
	executors, workers int,
	t models.Tunables,
	edges ...edge) *models.Job {
	list := make([]*models.Executor, executors)
	for i := range list {
		list[i] = models.NewExecutor(id, i, i, 10)
	}
	job, err := models.NewJob(models.JobOptions{
		ID:        id,
		Executors: list,
		Tunables:  t,
		Workers:   workers,
		Nodes:     len(suite.run.Nodes()),
	})
	suite.Require().NoError(err)

	e := job.Executors()
	pairs := make([]*models.ExecutorPair, len(edges))
	for i, ed := range edges {
		pairs[i] = &models.ExecutorPair{
			Source:      e[ed.src],
			Destination: e[ed.dst],
			Traffic:     ed.traffic,
		}
	}
	suite.Require().NoError(suite.run.AddJob(job, pairs))
	return job
}

func (suite *EngineTestSuite) place() *Result {
	result, err := New(suite.run, Options{}).Place()
	suite.Require().NoError(err)
	suite.checkInvariants()
	return result
}

func (suite *EngineTestSuite) checkInvariants() {
	for _, job := range suite.run.Jobs() {
		for _, ex := range job.Executors() {
			suite.NotNil(job.SlotOf(ex), "executor %s not placed", ex)
		}
		for _, s := range job.Slots() {
			var load int64
			for _, ex := range s.Executors() {
				load += ex.Load
			}
			suite.Equal(load, s.Load())
			suite.True(s.Len() <= job.MaxExecutorsPerSlot())
			if !s.Empty() {
				suite.NotNil(s.Node(), "slot %s not placed", s.Key)
			}
		}
	}
	for _, n := range suite.run.Nodes() {
		var load int64
		for _, s := range n.Slots() {
			load += s.Load()
		}
		suite.Equal(load, n.Load())
		suite.True(n.Load() <= n.Capacity)
	}
}

func (suite *EngineTestSuite) TestHotPairSharesSlot() {
	suite.newNodes(2, 2, 1000)
	t := models.DefaultTunables()
	t.Alpha = 1
	job := suite.addJob("job", 3, 2, t, edge{0, 1, 30})

	result := suite.place()
	e := job.Executors()
	suite.Equal(job.SlotOf(e[0]), job.SlotOf(e[1]))
	suite.NotEqual(job.SlotOf(e[0]), job.SlotOf(e[2]))
	suite.Equal(int64(0), result.JobTraffic["job"])
}

func (suite *EngineTestSuite) TestTwoJobsEndToEnd() {
	suite.newNodes(2, 2, 1000)
	t := models.DefaultTunables()
	a := suite.addJob("a", 4, 2, t,
		edge{0, 1, 50}, edge{1, 2, 0}, edge{2, 3, 0})
	b := suite.addJob("b", 2, 2, t, edge{0, 1, 0})

	result := suite.place()
	suite.Equal(int64(0), result.InterNodeTraffic)

	ae := a.Executors()
	hot := a.SlotOf(ae[0])
	suite.Equal(hot, a.SlotOf(ae[1]))
	suite.Equal(models.SlotKey{JobID: "a", Index: 0}, hot.Key)
	suite.Equal("n1", hot.Node().Name)
	suite.Equal(a.SlotOf(ae[2]), a.SlotOf(ae[3]))
	suite.Equal("n2", a.SlotOf(ae[2]).Node().Name)

	// b has a single executor per slot and one slot per node.
	be := b.Executors()
	suite.Equal("n1", b.SlotOf(be[0]).Node().Name)
	suite.Equal("n2", b.SlotOf(be[1]).Node().Name)

	suite.Len(result.Nodes, 2)
	n1, ok := result.Node("n1")
	suite.True(ok)
	suite.Equal(int64(30), n1.Load())
	_, ok = result.Node("n3")
	suite.False(ok)
}

func (suite *EngineTestSuite) TestSlotsOfHeavyPairsShareNode() {
	suite.newNodes(2, 2, 1000)
	t := models.DefaultTunables()
	t.Beta = 0
	job := suite.addJob("job", 4, 4, t,
		edge{0, 1, 100}, edge{2, 3, 80}, edge{1, 2, 5})
	suite.Equal(2, job.NodesToUse())
	suite.Equal(2, job.MaxSlotsPerNode())

	result := suite.place()
	e := job.Executors()
	suite.Equal(job.SlotOf(e[0]).Node(), job.SlotOf(e[1]).Node())
	suite.Equal(job.SlotOf(e[2]).Node(), job.SlotOf(e[3]).Node())
	suite.NotEqual(job.SlotOf(e[1]).Node(), job.SlotOf(e[2]).Node())
	suite.Equal(int64(5), result.InterNodeTraffic)
	suite.Equal(int64(185), result.JobTraffic["job"])
}

func (suite *EngineTestSuite) TestEmptySlotIsFilled() {
	suite.newNodes(1, 3, 1000)
	t := models.DefaultTunables()
	t.Alpha = 1
	t.Delta = 1
	job := suite.addJob("job", 5, 3, t,
		edge{0, 1, 100}, edge{1, 2, 90}, edge{3, 4, 80}, edge{2, 3, 1})
	suite.Equal(3, job.MaxExecutorsPerSlot())

	result := suite.place()
	e := job.Executors()
	s := job.Slots()
	suite.Equal([]*models.Executor{e[0], e[1], e[2]}, s[0].Executors())
	suite.Equal([]*models.Executor{e[4]}, s[1].Executors())
	suite.Equal([]*models.Executor{e[3]}, s[2].Executors())
	suite.Equal(int64(81), result.JobTraffic["job"])
}

func (suite *EngineTestSuite) TestFairnessSpreadsJob() {
	suite.newNodes(3, 2, 1000)
	t := models.DefaultTunables()
	t.Delta = 1
	job := suite.addJob("job", 4, 4, t,
		edge{0, 1, 100}, edge{2, 3, 80}, edge{1, 2, 5})
	suite.Equal(3, job.NodesToUse())
	suite.Equal(2, job.MaxSlotsPerNode())

	result := suite.place()
	e := job.Executors()
	suite.Equal("n1", job.SlotOf(e[0]).Node().Name)
	suite.Equal("n1", job.SlotOf(e[1]).Node().Name)
	suite.Equal("n3", job.SlotOf(e[2]).Node().Name)
	suite.Equal("n2", job.SlotOf(e[3]).Node().Name)
	suite.Equal(3, suite.run.Ledger.JobNodeCount("job"))
	suite.Equal(int64(85), result.InterNodeTraffic)
}

func (suite *EngineTestSuite) TestFairnessRespectsIterationCap() {
	suite.newNodes(3, 2, 1000)
	t := models.DefaultTunables()
	t.Delta = 1
	suite.addJob("job", 4, 4, t,
		edge{0, 1, 100}, edge{2, 3, 80}, edge{1, 2, 5})

	// One move is enough to reach three nodes.
	result, err := New(suite.run, Options{FairnessIterationCap: 1}).Place()
	suite.NoError(err)
	suite.Equal(3, suite.run.Ledger.JobNodeCount("job"))
	suite.Equal(int64(85), result.InterNodeTraffic)
}

func (suite *EngineTestSuite) TestInfeasible() {
	suite.newNodes(1, 2, 5)
	suite.addJob("job", 2, 2, models.DefaultTunables(), edge{0, 1, 1})

	_, err := New(suite.run, Options{}).Place()
	suite.Equal(models.ErrInfeasible, errors.Cause(err))
}

func (suite *EngineTestSuite) TestNoNodes() {
	suite.run = NewRun(nil)
	_, err := New(suite.run, Options{}).Place()
	suite.Equal(models.ErrInfeasible, errors.Cause(err))
}

func (suite *EngineTestSuite) TestExecutorsWithoutEdges() {
	suite.newNodes(2, 2, 1000)
	job := suite.addJob("job", 2, 2, models.DefaultTunables())

	result := suite.place()
	e := job.Executors()
	suite.NotEqual(job.SlotOf(e[0]), job.SlotOf(e[1]))
	suite.Equal(int64(0), result.InterNodeTraffic)
	suite.Equal(2, suite.run.Ledger.JobNodeCount("job"))
}
