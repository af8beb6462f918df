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
	"sort"
	"sync"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/statemachine"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/optimizer"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage"
)

// States of the scheduler.
const (
	Idle       statemachine.State = "idle"
	Simulating statemachine.State = "simulating"
	Evaluating statemachine.State = "evaluating"
	Applying   statemachine.State = "applying"
)

// Scheduler decides on every invocation whether the jobs should be moved
// to a placement with less inter-node traffic, and applies it.
type Scheduler struct {
	sync.Mutex

	cfg     config.SchedulerConfig
	store   storage.Store
	client  cluster.Client
	applier *applier
	tracker *Tracker
	metrics *metrics.Metrics
	sm      statemachine.StateMachine

	lastApplied time.Time
	now         func() time.Time
}

// NewScheduler creates a scheduler. Applied assignments are recorded in
// audit.
func NewScheduler(
	cfg config.SchedulerConfig,
	store storage.Store,
	audit storage.AuditStore,
	client cluster.Client,
	m *metrics.Metrics) (*Scheduler, error) {
	sm, err := statemachine.NewBuilder().
		WithName("scheduler").
		WithCurrentState(Idle).
		AddRule(&statemachine.Rule{
			From: Idle,
			To:   []statemachine.State{Simulating},
		}).
		AddRule(&statemachine.Rule{
			From: Simulating,
			To:   []statemachine.State{Evaluating, Idle},
		}).
		AddRule(&statemachine.Rule{
			From: Evaluating,
			To:   []statemachine.State{Applying, Idle},
		}).
		AddRule(&statemachine.Rule{
			From: Applying,
			To:   []statemachine.State{Idle},
		}).
		WithTransitionCallback(func(t *statemachine.Transition) error {
			log.WithFields(log.Fields{
				"from": t.From,
				"to":   t.To,
			}).Debug("Scheduler state changed")
			return nil
		}).
		Build()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cfg:    cfg,
		store:  store,
		client: client,
		applier: &applier{
			client:  client,
			metrics: m,
		},
		tracker: NewTracker(audit),
		metrics: m,
		sm:      sm,
		now:     time.Now,
	}, nil
}

// State returns the current state of the scheduler.
func (s *Scheduler) State() statemachine.State {
	return s.sm.GetCurrentState()
}

// LastApplied returns when a placement was last applied, or the zero time.
func (s *Scheduler) LastApplied() time.Time {
	s.Lock()
	defer s.Unlock()
	return s.lastApplied
}

// Schedule runs one scheduling round. Jobs with invalid tunables are left
// out and reported in the returned error together with any failure that
// aborted the round.
func (s *Scheduler) Schedule(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	start := time.Now()
	logger := log.WithField("run_id", uuid.New())
	s.metrics.Runs.Inc(1)
	defer func() {
		s.metrics.RunDuration.Record(time.Since(start))
	}()

	jobs, err := s.client.Jobs(ctx)
	if err != nil {
		s.metrics.RunFail.Inc(1)
		return errors.Wrap(err, "failed to list running jobs")
	}
	defer s.track(ctx, logger)

	if len(jobs) == 0 {
		logger.Info("No job running")
		return nil
	}

	tunables, errs := s.parseTunables(logger, jobs)
	if len(tunables) == 0 {
		return errs
	}

	timeout, improvement := gatePolicy(tunables)
	now := s.now()
	if !timeoutElapsed(s.lastApplied, now, timeout) {
		elapsed := now.Sub(s.lastApplied)
		logger.WithFields(log.Fields{
			"elapsed":   elapsed.String(),
			"remaining": (timeout - elapsed).String(),
		}).Info("It is not time to reschedule yet")
		s.metrics.DecisionRejectedTimeout.Inc(1)
		return errs
	}

	if err := s.sm.TransitTo(Simulating, "reschedule timeout elapsed"); err != nil {
		return multierr.Append(errs, err)
	}
	defer func() {
		if s.sm.GetCurrentState() != Idle {
			if err := s.sm.TransitTo(Idle, "round completed"); err != nil {
				logger.WithError(err).Error("Failed to return to idle")
			}
		}
	}()

	if err := s.round(ctx, logger, jobs, tunables, improvement); err != nil {
		s.metrics.RunFail.Inc(1)
		logger.WithError(err).Error("Scheduling round failed")
		errs = multierr.Append(errs, err)
	}
	return errs
}

// parseTunables returns the tunables of the jobs whose configuration is
// valid.
func (s *Scheduler) parseTunables(
	logger *log.Entry,
	jobs []*cluster.Job) (map[string]models.Tunables, error) {
	var errs error
	tunables := make(map[string]models.Tunables, len(jobs))
	for _, j := range jobs {
		t, err := config.ParseTunables(j.Conf, s.cfg)
		if err != nil {
			logger.WithError(err).WithField("job", j.ID).
				Warn("Job left out because of its configuration")
			s.metrics.JobSkipped.Inc(1)
			errs = multierr.Append(errs, errors.Wrapf(err, "job %s", j.ID))
			continue
		}
		tunables[j.ID] = t
	}
	return tunables, errs
}

// gatePolicy applies the most demanding reschedule timeout and traffic
// improvement of the jobs to the whole round.
func gatePolicy(tunables map[string]models.Tunables) (time.Duration, int) {
	first := true
	var timeout time.Duration
	var improvement int
	for _, t := range tunables {
		if first || t.RescheduleTimeout < timeout {
			timeout = t.RescheduleTimeout
		}
		if first || t.TrafficImprovement < improvement {
			improvement = t.TrafficImprovement
		}
		first = false
	}
	return timeout, improvement
}

func (s *Scheduler) round(
	ctx context.Context,
	logger *log.Entry,
	jobs []*cluster.Job,
	tunables map[string]models.Tunables,
	improvement int) error {
	candidates, err := s.pruneStale(ctx, logger, jobs, tunables)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		logger.Info("No job with telemetry to reschedule")
		return nil
	}

	snapshot, err := s.client.Snapshot(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read live assignment")
	}
	nodeInfos, err := s.store.Nodes(ctx)
	if err != nil {
		return err
	}
	loads, err := s.store.AllLoads(ctx)
	if err != nil {
		return err
	}
	traffic, err := s.store.AllTraffic(ctx)
	if err != nil {
		return err
	}

	prepared, err := s.prepareJobs(ctx, logger, candidates, tunables, len(nodeInfos))
	if err != nil {
		return err
	}
	s.metrics.JobsConsidered.Update(float64(len(prepared)))
	if len(prepared) == 0 {
		logger.Info("No job has complete telemetry yet")
		return nil
	}

	simulated := make([]string, len(prepared))
	rescheduled := make(map[string]bool, len(prepared))
	for i, p := range prepared {
		simulated[i] = p.job.ID
		rescheduled[p.job.ID] = true
	}
	live := newLiveState(loads, traffic, rescheduled)

	run := optimizer.NewRun(s.buildNodes(nodeInfos, snapshot, live, simulated))
	for _, p := range prepared {
		if err := run.AddJob(p.job, p.pairs); err != nil {
			return err
		}
	}

	result, err := optimizer.New(run, optimizer.Options{
		FairnessIterationCap: s.cfg.FairnessIterationCap,
	}).Place()
	if err != nil {
		if errors.Cause(err) == models.ErrInfeasible {
			s.metrics.RunInfeasible.Inc(1)
		}
		return errors.Wrap(err, "failed to compute placement")
	}

	if err := s.sm.TransitTo(Evaluating, "placement computed"); err != nil {
		return err
	}
	overloaded := live.overloaded(nodeInfos)
	in := GateInput{
		CurrentInterNodeTraffic: live.interNodeTraffic,
		BestInterNodeTraffic:    result.InterNodeTraffic,
		TrafficImprovement:      improvement,
		Projected:               make(map[string]int64, len(result.Nodes)),
	}
	for _, n := range overloaded {
		in.Overloaded = append(in.Overloaded, NodeLoad{Name: n.Name, Load: live.nodeLoad[n.Name]})
	}
	for _, n := range result.Nodes {
		in.Projected[n.Name] = n.Load() + live.retainedLoad[n.Name]
	}
	verdict := Evaluate(in)

	s.metrics.CurrentInterNodeTraffic.Update(float64(in.CurrentInterNodeTraffic))
	s.metrics.BestInterNodeTraffic.Update(float64(in.BestInterNodeTraffic))
	s.metrics.OverloadedNodes.Update(float64(len(overloaded)))
	logger = logger.WithFields(log.Fields{
		"current_inter_node_traffic": in.CurrentInterNodeTraffic,
		"best_inter_node_traffic":    in.BestInterNodeTraffic,
		"threshold":                  verdict.Threshold,
		"overloaded_nodes":           len(overloaded),
		"jobs":                       simulated,
	})
	if !verdict.Apply {
		s.metrics.DecisionRejectedTraffic.Inc(1)
		logger.Info("Placement not worth applying")
		return nil
	}

	if err := s.sm.TransitTo(Applying, "placement accepted"); err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"due_to_traffic": verdict.Traffic,
		"due_to_relief":  verdict.Relief,
	}).Info("Applying placement")
	if err := s.applier.Apply(ctx, logger, snapshot, result, simulated); err != nil {
		return err
	}
	s.lastApplied = s.now()
	s.metrics.DecisionApplied.Inc(1)

	if err := s.store.ResetJobs(ctx, simulated); err != nil {
		return errors.Wrap(err, "placement applied but telemetry not reset")
	}
	return nil
}

// pruneStale resets the telemetry of jobs that no longer run and returns
// the running jobs with valid tunables and stored telemetry, by id.
func (s *Scheduler) pruneStale(
	ctx context.Context,
	logger *log.Entry,
	jobs []*cluster.Job,
	tunables map[string]models.Tunables) ([]*cluster.Job, error) {
	stored, err := s.store.JobIDs(ctx)
	if err != nil {
		return nil, err
	}

	running := make(map[string]*cluster.Job, len(jobs))
	for _, j := range jobs {
		running[j.ID] = j
	}

	var stale []string
	var candidates []*cluster.Job
	for _, id := range stored {
		j, ok := running[id]
		if !ok {
			stale = append(stale, id)
			continue
		}
		if _, ok := tunables[id]; ok {
			candidates = append(candidates, j)
		}
	}

	if len(stale) > 0 {
		if err := s.store.ResetJobs(ctx, stale); err != nil {
			return nil, errors.Wrap(err, "failed to reset stale jobs")
		}
		s.metrics.StaleJobsReset.Inc(int64(len(stale)))
		logger.WithField("jobs", stale).Info("Telemetry of stopped jobs reset")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	return candidates, nil
}

// buildNodes creates the nodes of the run. A node offers the ports of its
// host not held by jobs outside the run, and the capacity left by their
// load.
func (s *Scheduler) buildNodes(
	infos []*storage.NodeInfo,
	snapshot *cluster.Snapshot,
	live *liveState,
	simulated []string) []*models.Node {
	nodes := make([]*models.Node, 0, len(infos))
	for _, info := range infos {
		capacity := info.Capacity - live.retainedLoad[info.Name]
		if capacity < 0 {
			capacity = 0
		}
		ports := snapshot.FreePorts(info.Name, simulated...)
		nodes = append(nodes, models.NewNode(info.Name, capacity, info.Cores, len(ports)))
	}
	return nodes
}

type preparedJob struct {
	job   *models.Job
	pairs []*models.ExecutorPair
}

// prepareJobs models the candidates with complete telemetry, by id. Jobs
// left out keep their ports and load outside the run.
func (s *Scheduler) prepareJobs(
	ctx context.Context,
	logger *log.Entry,
	candidates []*cluster.Job,
	tunables map[string]models.Tunables,
	nodes int) ([]*preparedJob, error) {
	var prepared []*preparedJob
	for _, j := range candidates {
		jl := logger.WithField("job", j.ID)
		loads, err := s.store.ExecutorLoads(ctx, j.ID)
		if err != nil {
			return nil, err
		}
		total, err := s.store.TotalLoad(ctx, j.ID)
		if err != nil {
			return nil, err
		}
		rows, err := s.store.Traffic(ctx, j.ID)
		if err != nil {
			return nil, err
		}

		job, err := models.NewJob(models.JobOptions{
			ID:        j.ID,
			Executors: BuildExecutors(j.ID, loads),
			Tunables:  tunables[j.ID],
			Workers:   j.Workers,
			Nodes:     nodes,
			TotalLoad: total,
		})
		if err != nil {
			jl.WithError(err).Warn("Job left out of the round")
			s.metrics.JobSkipped.Inc(1)
			continue
		}

		pairs, err := BuildPairs(job, rows)
		if err == nil && len(pairs) == 0 {
			err = errors.Wrap(ErrIncompleteTelemetry, "no traffic between executors")
		}
		if err != nil {
			jl.WithError(err).Info("Traffic stats are not complete yet, job skipped")
			s.metrics.JobSkipped.Inc(1)
			continue
		}

		jl.WithField("model", job.String()).Debug("Job added to the round")
		prepared = append(prepared, &preparedJob{job: job, pairs: pairs})
	}
	return prepared, nil
}

// track records the live assignment after every round.
func (s *Scheduler) track(ctx context.Context, logger *log.Entry) {
	snapshot, err := s.client.Snapshot(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read assignment to track")
		return
	}
	changed, err := s.tracker.Check(ctx, snapshot)
	if changed {
		s.metrics.AssignmentChanged.Inc(1)
	}
	if err != nil {
		s.metrics.AssignmentSaveFail.Inc(1)
		logger.WithError(err).Error("Failed to record assignment")
	}
}
