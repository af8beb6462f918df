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

package metrics

import (
	"github.com/uber-go/tally"
)

// Metrics is the struct containing all the counters that track the
// scheduler internals.
type Metrics struct {
	Running tally.Gauge

	Runs          tally.Counter
	RunFail       tally.Counter
	RunInfeasible tally.Counter
	RunDuration   tally.Timer

	JobsConsidered tally.Gauge
	JobSkipped     tally.Counter
	StaleJobsReset tally.Counter

	DecisionApplied         tally.Counter
	DecisionRejectedTimeout tally.Counter
	DecisionRejectedTraffic tally.Counter
	ApplyFail               tally.Counter
	PartialApply            tally.Counter

	CurrentInterNodeTraffic tally.Gauge
	BestInterNodeTraffic    tally.Gauge
	OverloadedNodes         tally.Gauge

	AssignmentChanged  tally.Counter
	AssignmentSaveFail tally.Counter
}

// New returns a new Metrics struct rooted at the given scope.
func New(scope tally.Scope) *Metrics {
	runScope := scope.SubScope("run")
	decisionScope := scope.SubScope("decision")
	rejectedScope := decisionScope.SubScope("rejected")
	trafficScope := scope.SubScope("inter_node_traffic")
	auditScope := scope.SubScope("assignment")

	return &Metrics{
		Running: scope.Gauge("running"),

		Runs:          runScope.Counter("total"),
		RunFail:       runScope.Counter("fail"),
		RunInfeasible: runScope.Counter("infeasible"),
		RunDuration:   runScope.Timer("duration"),

		JobsConsidered: runScope.Gauge("jobs"),
		JobSkipped:     runScope.Counter("job_skipped"),
		StaleJobsReset: runScope.Counter("stale_job_reset"),

		DecisionApplied:         decisionScope.Counter("applied"),
		DecisionRejectedTimeout: rejectedScope.Tagged(map[string]string{"reason": "timeout"}).Counter("total"),
		DecisionRejectedTraffic: rejectedScope.Tagged(map[string]string{"reason": "traffic"}).Counter("total"),
		ApplyFail:               decisionScope.Counter("apply_fail"),
		PartialApply:            decisionScope.Counter("partial_apply"),

		CurrentInterNodeTraffic: trafficScope.Gauge("current"),
		BestInterNodeTraffic:    trafficScope.Gauge("best"),
		OverloadedNodes:         scope.Gauge("overloaded_nodes"),

		AssignmentChanged:  auditScope.Counter("changed"),
		AssignmentSaveFail: auditScope.Counter("save_fail"),
	}
}

// MonitorMetrics tracks the telemetry loop of a node.
type MonitorMetrics struct {
	Running tally.Gauge

	LoadSamples    tally.Counter
	TrafficSamples tally.Counter
	Flushes        tally.Counter
	FlushFail      tally.Counter
	FlushDuration  tally.Timer
}

// NewMonitorMetrics returns a new MonitorMetrics struct rooted at the given
// scope.
func NewMonitorMetrics(scope tally.Scope) *MonitorMetrics {
	flushScope := scope.SubScope("flush")
	return &MonitorMetrics{
		Running: scope.Gauge("running"),

		LoadSamples:    scope.Counter("load_samples"),
		TrafficSamples: scope.Counter("traffic_samples"),
		Flushes:        flushScope.Counter("total"),
		FlushFail:      flushScope.Counter("fail"),
		FlushDuration:  flushScope.Timer("duration"),
	}
}
