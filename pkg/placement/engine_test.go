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

package placement

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"
	"go.uber.org/goleak"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/config"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/metrics"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/mocks"
)

type EngineTestSuite struct {
	suite.Suite

	ctrl      *gomock.Controller
	scheduler *mocks.MockScheduler
	scope     tally.TestScope
	engine    *engine
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.scheduler = mocks.NewMockScheduler(suite.ctrl)
	suite.scope = tally.NewTestScope("", nil)
	suite.engine = NewEngine(
		config.SchedulerConfig{SchedulePeriod: time.Millisecond},
		suite.scheduler,
		metrics.New(suite.scope)).(*engine)
}

func (suite *EngineTestSuite) TearDownTest() {
	suite.ctrl.Finish()
	goleak.VerifyNone(suite.T())
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) running() float64 {
	for _, g := range suite.scope.Snapshot().Gauges() {
		if g.Name() == "running" {
			return g.Value()
		}
	}
	return -1
}

func (suite *EngineTestSuite) TestStartStop() {
	fired := make(chan struct{}, 100)
	suite.scheduler.EXPECT().
		Schedule(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		}).
		MinTimes(2)

	suite.engine.Start()
	suite.Equal(float64(1), suite.running())
	<-fired
	<-fired
	suite.engine.Stop()
	suite.Equal(float64(0), suite.running())
}

func (suite *EngineTestSuite) TestKeepsRunningAfterFailure() {
	fired := make(chan struct{}, 100)
	suite.scheduler.EXPECT().
		Schedule(gomock.Any()).
		DoAndReturn(func(ctx context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return errors.New("nimbus unavailable")
		}).
		MinTimes(2)

	suite.engine.Start()
	<-fired
	<-fired
	suite.engine.Stop()
}

func (suite *EngineTestSuite) TestRunReturnsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(
		config.SchedulerConfig{SchedulePeriod: time.Hour},
		suite.scheduler,
		metrics.New(tally.NoopScope)).(*engine)
	suite.Equal(context.Canceled, e.Run(ctx))
}
