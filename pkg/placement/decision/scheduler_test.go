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
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster"
	cluster_mocks "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster/mocks"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
	storage_mocks "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/mocks"
)

type SchedulerTestSuite struct {
	suite.Suite

	ctrl      *gomock.Controller
	store     *storage_mocks.MockStore
	audit     *storage_mocks.MockAuditStore
	client    *cluster_mocks.MockClient
	scope     tally.TestScope
	scheduler *Scheduler
	now       time.Time
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.store = storage_mocks.NewMockStore(suite.ctrl)
	suite.audit = storage_mocks.NewMockAuditStore(suite.ctrl)
	suite.client = cluster_mocks.NewMockClient(suite.ctrl)
	suite.scope = tally.NewTestScope("", nil)
	suite.now = time.Unix(1500000000, 0)

	var err error
	suite.scheduler, err = NewScheduler(
		config.SchedulerConfig{
			DefaultTrafficImprovement: 10,
		},
		suite.store,
		suite.audit,
		suite.client,
		metrics.New(suite.scope))
	suite.Require().NoError(err)
	suite.scheduler.now = func() time.Time { return suite.now }
}

func (suite *SchedulerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

// counter returns the value of the counter with the given name and tags.
func (suite *SchedulerTestSuite) counter(name string, tags map[string]string) int64 {
	for _, c := range suite.scope.Snapshot().Counters() {
		if c.Name() != name {
			continue
		}
		match := true
		for k, v := range tags {
			if c.Tags()[k] != v {
				match = false
			}
		}
		if match {
			return c.Value()
		}
	}
	return 0
}

// liveSnapshot runs executor 1 of job a on h1 and executors 2 and 3 on
// h2, so the traffic between 1 and 2 crosses nodes.
func liveSnapshot() *cluster.Snapshot {
	return &cluster.Snapshot{
		Executors: []*cluster.Executor{
			{JobID: "a", Begin: 1, End: 1, Component: "spout", Endpoint: h1p0},
			{JobID: "a", Begin: 2, End: 2, Component: "split", Endpoint: h2p0},
			{JobID: "a", Begin: 3, End: 3, Component: "count", Endpoint: h2p1},
		},
		Ports: map[string][]int{
			"h1": {6700, 6701},
			"h2": {6700, 6701},
		},
	}
}

func liveLoads() []*storage.ExecutorLoad {
	return []*storage.ExecutorLoad{
		{JobID: "a", Begin: 1, End: 1, Load: 10, Node: "h1"},
		{JobID: "a", Begin: 2, End: 2, Load: 10, Node: "h2"},
		{JobID: "a", Begin: 3, End: 3, Load: 10, Node: "h2"},
	}
}

func liveTraffic() []*storage.TaskTraffic {
	return []*storage.TaskTraffic{
		{JobID: "a", Source: 1, Destination: 2, Traffic: 50},
	}
}

func nodeInfos() []*storage.NodeInfo {
	return []*storage.NodeInfo{
		{Name: "h1", Capacity: 1000, Cores: 4},
		{Name: "h2", Capacity: 1000, Cores: 4},
	}
}

// expectTelemetry sets up the reads of a full round over job a.
func (suite *SchedulerTestSuite) expectTelemetry(
	snapshot *cluster.Snapshot,
	loads []*storage.ExecutorLoad,
	traffic []*storage.TaskTraffic) {
	var total int64
	for _, l := range loads {
		total += l.Load
	}
	suite.store.EXPECT().JobIDs(gomock.Any()).Return([]string{"a"}, nil)
	suite.client.EXPECT().Snapshot(gomock.Any()).Return(snapshot, nil)
	suite.store.EXPECT().Nodes(gomock.Any()).Return(nodeInfos(), nil)
	suite.store.EXPECT().AllLoads(gomock.Any()).Return(loads, nil)
	suite.store.EXPECT().AllTraffic(gomock.Any()).Return(traffic, nil)
	suite.store.EXPECT().ExecutorLoads(gomock.Any(), "a").Return(loads, nil)
	suite.store.EXPECT().TotalLoad(gomock.Any(), "a").Return(total, nil)
	suite.store.EXPECT().Traffic(gomock.Any(), "a").Return(traffic, nil)
}

// expectUntracked makes the tracker see an empty assignment.
func (suite *SchedulerTestSuite) expectUntracked() {
	suite.client.EXPECT().Snapshot(gomock.Any()).Return(&cluster.Snapshot{}, nil)
}

func (suite *SchedulerTestSuite) jobs(jobs ...*cluster.Job) {
	suite.client.EXPECT().Jobs(gomock.Any()).Return(jobs, nil)
}

func (suite *SchedulerTestSuite) TestScheduleAppliesPlacement() {
	live := liveSnapshot()
	suite.jobs(&cluster.Job{ID: "a", Name: "wordcount", Workers: 2})
	suite.expectTelemetry(live, liveLoads(), liveTraffic())

	gomock.InOrder(
		suite.client.EXPECT().Free(gomock.Any(), h1p0).Return(nil),
		suite.client.EXPECT().Free(gomock.Any(), h2p0).Return(nil),
		suite.client.EXPECT().Free(gomock.Any(), h2p1).Return(nil),
		suite.client.EXPECT().
			Assign(gomock.Any(), "a", h1p0, []*cluster.Executor{live.Executors[0], live.Executors[1]}).
			Return(nil),
		suite.client.EXPECT().
			Assign(gomock.Any(), "a", h2p0, []*cluster.Executor{live.Executors[2]}).
			Return(nil),
		suite.store.EXPECT().ResetJobs(gomock.Any(), []string{"a"}).Return(nil),
		suite.client.EXPECT().Snapshot(gomock.Any()).Return(live, nil),
		suite.audit.EXPECT().StoreAssignment(gomock.Any(), gomock.Any()).Return(nil),
	)

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(Idle, suite.scheduler.State())
	suite.Equal(suite.now, suite.scheduler.LastApplied())
	suite.Equal(int64(1), suite.counter("decision.applied", nil))
	suite.Equal(int64(1), suite.counter("assignment.changed", nil))
}

func (suite *SchedulerTestSuite) TestScheduleRejectsBeforeTimeout() {
	suite.scheduler.lastApplied = suite.now.Add(-10 * time.Second)
	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(Idle, suite.scheduler.State())
	suite.Equal(int64(1), suite.counter("decision.rejected.total",
		map[string]string{"reason": "timeout"}))
}

func (suite *SchedulerTestSuite) TestScheduleUsesShortestTimeout() {
	suite.scheduler.lastApplied = suite.now.Add(-10 * time.Second)
	suite.jobs(
		&cluster.Job{ID: "a", Workers: 2},
		&cluster.Job{ID: "b", Workers: 2, Conf: map[string]string{
			config.RescheduleTimeoutKey: "5",
		}},
	)
	// b is running but has no telemetry yet.
	suite.store.EXPECT().JobIDs(gomock.Any()).Return(nil, nil)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(int64(0), suite.counter("decision.rejected.total",
		map[string]string{"reason": "timeout"}))
}

func (suite *SchedulerTestSuite) TestScheduleRejectsSmallImprovement() {
	// Two executors on two slots of different nodes cannot get closer.
	loads := liveLoads()[:2]
	snapshot := liveSnapshot()
	snapshot.Executors = snapshot.Executors[:2]

	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectTelemetry(snapshot, loads, liveTraffic())
	suite.client.EXPECT().Snapshot(gomock.Any()).Return(snapshot, nil)
	suite.audit.EXPECT().StoreAssignment(gomock.Any(), gomock.Any()).Return(nil)

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(Idle, suite.scheduler.State())
	suite.True(suite.scheduler.LastApplied().IsZero())
	suite.Equal(int64(1), suite.counter("decision.rejected.total",
		map[string]string{"reason": "traffic"}))
}

func (suite *SchedulerTestSuite) TestScheduleSkipsInvalidTunables() {
	suite.jobs(
		&cluster.Job{ID: "a", Workers: 2},
		&cluster.Job{ID: "b", Workers: 2, Conf: map[string]string{config.AlphaKey: "2"}},
	)
	suite.store.EXPECT().JobIDs(gomock.Any()).Return([]string{"b"}, nil)
	suite.expectUntracked()

	err := suite.scheduler.Schedule(context.Background())
	suite.Require().Error(err)
	errs := multierr.Errors(err)
	suite.Require().Len(errs, 1)
	suite.Equal(config.ErrInvalidTunable, errors.Cause(errs[0]))
	suite.Equal(int64(1), suite.counter("run.job_skipped", nil))
}

func (suite *SchedulerTestSuite) TestScheduleResetsStaleJobs() {
	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.store.EXPECT().JobIDs(gomock.Any()).Return([]string{"old"}, nil)
	suite.store.EXPECT().ResetJobs(gomock.Any(), []string{"old"}).Return(nil)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(int64(1), suite.counter("run.stale_job_reset", nil))
}

func (suite *SchedulerTestSuite) TestScheduleSkipsIncompleteTelemetry() {
	traffic := append(liveTraffic(), &storage.TaskTraffic{
		JobID: "a", Source: 9, Destination: 1, Traffic: 3,
	})
	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectTelemetry(liveSnapshot(), liveLoads(), traffic)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(Idle, suite.scheduler.State())
	suite.Equal(int64(1), suite.counter("run.job_skipped", nil))
}

func (suite *SchedulerTestSuite) TestScheduleInfeasible() {
	loads := liveLoads()
	for _, l := range loads {
		l.Load = 2000
	}
	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectTelemetry(liveSnapshot(), loads, liveTraffic())
	suite.expectUntracked()

	err := suite.scheduler.Schedule(context.Background())
	suite.Equal(models.ErrInfeasible, errors.Cause(err))
	suite.Equal(Idle, suite.scheduler.State())
	suite.Equal(int64(1), suite.counter("run.infeasible", nil))
}

func (suite *SchedulerTestSuite) TestSchedulePartialApply() {
	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectTelemetry(liveSnapshot(), liveLoads(), liveTraffic())
	suite.client.EXPECT().Free(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	suite.client.EXPECT().Assign(gomock.Any(), "a", h1p0, gomock.Any()).
		Return(errors.New("nimbus unavailable"))
	suite.expectUntracked()

	err := suite.scheduler.Schedule(context.Background())
	suite.Equal(ErrPartialApply, errors.Cause(err))
	suite.Equal(Idle, suite.scheduler.State())
	suite.True(suite.scheduler.LastApplied().IsZero())
	suite.Equal(int64(1), suite.counter("decision.partial_apply", nil))
}

func (suite *SchedulerTestSuite) TestScheduleRecoversAfterPartialApply() {
	// Executors 2 and 3 were freed by the previous round and never
	// reassigned; telemetry still places them on h2.
	live := liveSnapshot()
	live.Executors[1].Endpoint = cluster.Endpoint{}
	live.Executors[2].Endpoint = cluster.Endpoint{}

	suite.jobs(&cluster.Job{ID: "a", Workers: 2})
	suite.expectTelemetry(live, liveLoads(), liveTraffic())
	gomock.InOrder(
		suite.client.EXPECT().Free(gomock.Any(), h1p0).Return(nil),
		suite.client.EXPECT().
			Assign(gomock.Any(), "a", h1p0, []*cluster.Executor{live.Executors[0], live.Executors[1]}).
			Return(nil),
		suite.client.EXPECT().
			Assign(gomock.Any(), "a", h2p0, []*cluster.Executor{live.Executors[2]}).
			Return(nil),
		suite.store.EXPECT().ResetJobs(gomock.Any(), []string{"a"}).Return(nil),
	)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(suite.now, suite.scheduler.LastApplied())
	suite.Equal(int64(1), suite.counter("decision.applied", nil))
}

// Job b has telemetry but cannot be simulated, so the port and the load it
// holds on h1 stay out of the run.
func (suite *SchedulerTestSuite) TestScheduleKeepsSkippedJobResources() {
	h3p0 := cluster.Endpoint{Host: "h3", Port: 6700}
	snapshot := &cluster.Snapshot{
		Executors: []*cluster.Executor{
			{JobID: "a", Begin: 1, End: 1, Component: "spout", Endpoint: h2p0},
			{JobID: "a", Begin: 2, End: 2, Component: "split", Endpoint: h3p0},
			{JobID: "b", Begin: 1, End: 1, Component: "sink", Endpoint: h1p0},
		},
		Ports: map[string][]int{
			"h1": {6700},
			"h2": {6700},
			"h3": {6700},
		},
	}
	aLoads := []*storage.ExecutorLoad{
		{JobID: "a", Begin: 1, End: 1, Load: 10, Node: "h2"},
		{JobID: "a", Begin: 2, End: 2, Load: 10, Node: "h3"},
	}
	bLoads := []*storage.ExecutorLoad{
		{JobID: "b", Begin: 1, End: 1, Load: 5, Node: "h1"},
	}
	aTraffic := []*storage.TaskTraffic{
		{JobID: "a", Source: 1, Destination: 2, Traffic: 50},
	}
	bTraffic := []*storage.TaskTraffic{
		{JobID: "b", Source: 1, Destination: 7, Traffic: 4},
	}

	suite.jobs(
		&cluster.Job{ID: "a", Workers: 1},
		&cluster.Job{ID: "b", Workers: 1},
	)
	suite.store.EXPECT().JobIDs(gomock.Any()).Return([]string{"a", "b"}, nil)
	suite.client.EXPECT().Snapshot(gomock.Any()).Return(snapshot, nil)
	suite.store.EXPECT().Nodes(gomock.Any()).Return([]*storage.NodeInfo{
		{Name: "h1", Capacity: 1000, Cores: 4},
		{Name: "h2", Capacity: 1000, Cores: 4},
		{Name: "h3", Capacity: 1000, Cores: 4},
	}, nil)
	suite.store.EXPECT().AllLoads(gomock.Any()).Return(append(aLoads, bLoads...), nil)
	suite.store.EXPECT().AllTraffic(gomock.Any()).Return(append(aTraffic, bTraffic...), nil)
	suite.store.EXPECT().ExecutorLoads(gomock.Any(), "a").Return(aLoads, nil)
	suite.store.EXPECT().TotalLoad(gomock.Any(), "a").Return(int64(20), nil)
	suite.store.EXPECT().Traffic(gomock.Any(), "a").Return(aTraffic, nil)
	suite.store.EXPECT().ExecutorLoads(gomock.Any(), "b").Return(bLoads, nil)
	suite.store.EXPECT().TotalLoad(gomock.Any(), "b").Return(int64(5), nil)
	suite.store.EXPECT().Traffic(gomock.Any(), "b").Return(bTraffic, nil)

	suite.client.EXPECT().Free(gomock.Any(), h2p0).Return(nil)
	suite.client.EXPECT().Free(gomock.Any(), h3p0).Return(nil)
	suite.client.EXPECT().
		Assign(gomock.Any(), "a", gomock.Any(), []*cluster.Executor{snapshot.Executors[0], snapshot.Executors[1]}).
		DoAndReturn(func(_ context.Context, _ string, ep cluster.Endpoint, _ []*cluster.Executor) error {
			suite.NotEqual("h1", ep.Host)
			return nil
		})
	suite.store.EXPECT().ResetJobs(gomock.Any(), []string{"a"}).Return(nil)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.Equal(int64(1), suite.counter("decision.applied", nil))
	suite.Equal(int64(1), suite.counter("run.job_skipped", nil))
}

// Cross-node traffic of a job that is not rescheduled does not count as
// traffic the new placement could save.
func (suite *SchedulerTestSuite) TestScheduleIgnoresTrafficOfOtherJobs() {
	snapshot := liveSnapshot()
	snapshot.Executors = append(snapshot.Executors[:2],
		&cluster.Executor{JobID: "b", Begin: 1, End: 1, Component: "spout", Endpoint: h1p1},
		&cluster.Executor{JobID: "b", Begin: 2, End: 2, Component: "sink", Endpoint: h2p1},
	)
	aLoads := liveLoads()[:2]
	loads := append([]*storage.ExecutorLoad{
		{JobID: "b", Begin: 1, End: 1, Load: 10, Node: "h1"},
		{JobID: "b", Begin: 2, End: 2, Load: 10, Node: "h2"},
	}, aLoads...)
	traffic := append(liveTraffic(), &storage.TaskTraffic{
		JobID: "b", Source: 1, Destination: 2, Traffic: 1000,
	})

	suite.jobs(
		&cluster.Job{ID: "a", Workers: 2},
		&cluster.Job{ID: "b", Workers: 2},
	)
	suite.store.EXPECT().JobIDs(gomock.Any()).Return([]string{"a"}, nil)
	suite.client.EXPECT().Snapshot(gomock.Any()).Return(snapshot, nil)
	suite.store.EXPECT().Nodes(gomock.Any()).Return(nodeInfos(), nil)
	suite.store.EXPECT().AllLoads(gomock.Any()).Return(loads, nil)
	suite.store.EXPECT().AllTraffic(gomock.Any()).Return(traffic, nil)
	suite.store.EXPECT().ExecutorLoads(gomock.Any(), "a").Return(aLoads, nil)
	suite.store.EXPECT().TotalLoad(gomock.Any(), "a").Return(int64(20), nil)
	suite.store.EXPECT().Traffic(gomock.Any(), "a").Return(liveTraffic(), nil)
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
	suite.True(suite.scheduler.LastApplied().IsZero())
	suite.Equal(int64(1), suite.counter("decision.rejected.total",
		map[string]string{"reason": "traffic"}))
}

func (suite *SchedulerTestSuite) TestScheduleJobsFailure() {
	suite.client.EXPECT().Jobs(gomock.Any()).Return(nil, errors.New("nimbus unavailable"))

	suite.Error(suite.scheduler.Schedule(context.Background()))
	suite.Equal(int64(1), suite.counter("run.fail", nil))
}

func (suite *SchedulerTestSuite) TestScheduleNoJobs() {
	suite.jobs()
	suite.expectUntracked()

	suite.NoError(suite.scheduler.Schedule(context.Background()))
}

func TestGatePolicy(t *testing.T) {
	timeout, improvement := gatePolicy(map[string]models.Tunables{
		"a": {RescheduleTimeout: time.Minute, TrafficImprovement: 30},
		"b": {RescheduleTimeout: time.Hour, TrafficImprovement: 5},
	})
	if timeout != time.Minute || improvement != 5 {
		t.Fatalf("unexpected policy %v %d", timeout, improvement)
	}
}
