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

// Package placement drives the scheduler on a fixed period when it runs as
// a standalone service.
package placement

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/async"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
)

// Scheduler runs one scheduling round.
type Scheduler interface {
	Schedule(ctx context.Context) error
}

// Engine represents a placement engine that can be started and stopped.
type Engine interface {
	Start()
	Stop()
}

// NewEngine creates a new placement engine invoking the scheduler every
// schedule period.
func NewEngine(
	cfg config.SchedulerConfig,
	scheduler Scheduler,
	m *metrics.Metrics) Engine {
	result := &engine{
		config:    cfg,
		scheduler: scheduler,
		metrics:   m,
	}
	result.daemon = async.NewDaemon("Placement Engine", result)
	return result
}

type engine struct {
	config    config.SchedulerConfig
	metrics   *metrics.Metrics
	scheduler Scheduler
	daemon    async.Daemon
}

func (e *engine) Start() {
	e.daemon.Start()
	e.metrics.Running.Update(1)
}

func (e *engine) Run(ctx context.Context) error {
	log.WithField("schedule_period", e.config.SchedulePeriod.String()).
		Info("Engine started")

	timer := time.NewTimer(e.config.SchedulePeriod)
	for {
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-timer.C:
		}

		e.Place(ctx)
		timer.Reset(e.config.SchedulePeriod)
	}
}

func (e *engine) Stop() {
	e.daemon.Stop()
	e.metrics.Running.Update(0)
}

// Place lets the scheduler do one round. Failures are logged, the next
// round starts after a full period regardless.
func (e *engine) Place(ctx context.Context) {
	log.Debug("Beginning scheduling cycle")

	if err := e.scheduler.Schedule(ctx); err != nil {
		log.WithError(err).Warn("Scheduling cycle failed")
		return
	}
	log.Debug("Scheduling cycle completed")
}
