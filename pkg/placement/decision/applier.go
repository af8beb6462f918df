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

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/cluster"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/optimizer"
)

// ErrPartialApply is returned when committing a placement failed after the
// live assignment had already been modified. The live assignment is not
// rolled back.
var ErrPartialApply = errors.New("placement partially applied")

// assignment is a single commit instruction.
type assignment struct {
	jobID     string
	endpoint  cluster.Endpoint
	executors []*cluster.Executor
}

// applier commits a placement to the live cluster: the endpoints of the
// rescheduled jobs are freed first, then every slot is assigned node by
// node.
type applier struct {
	client  cluster.Client
	metrics *metrics.Metrics
}

// plan translates the placement into commit instructions without touching
// the live cluster. Slots of a node take the free ports of its host in
// order.
func (a *applier) plan(
	snapshot *cluster.Snapshot,
	result *optimizer.Result,
	jobIDs []string) ([]*assignment, error) {
	var plan []*assignment
	for _, node := range result.Nodes {
		ports := snapshot.FreePorts(node.Name, jobIDs...)
		i := 0
		for _, slot := range node.Slots() {
			if slot.Empty() {
				continue
			}
			if i >= len(ports) {
				return nil, errors.Errorf("host %s has %d free ports, %d slots placed",
					node.Name, len(ports), len(node.Slots()))
			}

			asg := &assignment{
				jobID:    slot.Key.JobID,
				endpoint: cluster.Endpoint{Host: node.Name, Port: ports[i]},
			}
			for _, e := range slot.Executors() {
				live := snapshot.Executor(e.JobID, e.Key.Begin, e.Key.End)
				if live == nil {
					return nil, errors.Errorf("executor %s is not running", e)
				}
				asg.executors = append(asg.executors, live)
			}
			plan = append(plan, asg)
			i++
		}
	}
	return plan, nil
}

// Apply commits the placement of the given jobs.
func (a *applier) Apply(
	ctx context.Context,
	logger *log.Entry,
	snapshot *cluster.Snapshot,
	result *optimizer.Result,
	jobIDs []string) error {
	plan, err := a.plan(snapshot, result, jobIDs)
	if err != nil {
		a.metrics.ApplyFail.Inc(1)
		return errors.Wrap(err, "failed to plan commit")
	}

	mutated := false
	var freeErrs error
	for _, ep := range snapshot.Endpoints(jobIDs...) {
		if err := a.client.Free(ctx, ep); err != nil {
			freeErrs = multierr.Append(freeErrs, err)
			continue
		}
		mutated = true
	}
	if freeErrs != nil {
		return a.fail(logger, freeErrs, mutated)
	}

	for _, asg := range plan {
		if err := a.client.Assign(ctx, asg.jobID, asg.endpoint, asg.executors); err != nil {
			return a.fail(logger, err, mutated)
		}
		mutated = true
		logger.WithFields(log.Fields{
			"job":       asg.jobID,
			"endpoint":  asg.endpoint.String(),
			"executors": len(asg.executors),
		}).Info("Executors assigned")
	}
	return nil
}

func (a *applier) fail(logger *log.Entry, err error, mutated bool) error {
	a.metrics.ApplyFail.Inc(1)
	if !mutated {
		return errors.Wrap(err, "failed to commit placement")
	}
	a.metrics.PartialApply.Inc(1)
	logger.WithError(err).
		WithField("anomaly", "partial_apply").
		Error("Placement partially applied, live assignment left inconsistent")
	return errors.Wrapf(ErrPartialApply, "%v", err)
}
