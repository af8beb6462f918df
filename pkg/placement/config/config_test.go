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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"

	common_config "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/config"
)

type ConfigTestSuite struct {
	suite.Suite

	dir string
	cfg SchedulerConfig
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	dir, err := ioutil.TempDir("", "scheduler-config")
	suite.NoError(err)
	suite.dir = dir
	suite.cfg = SchedulerConfig{
		DefaultTrafficImprovement: 10,
	}
}

func (suite *ConfigTestSuite) TearDownTest() {
	os.RemoveAll(suite.dir)
}

func (suite *ConfigTestSuite) TestParseAndNormalize() {
	file := filepath.Join(suite.dir, "scheduler.yaml")
	suite.NoError(ioutil.WriteFile(file, []byte(`
scheduler:
  schedule_period: 5s
  fairness_iteration_cap: 4
monitor:
  enabled: true
  total_speed: 8000
  capacity_percent: 50
  window_slot_count: 3
  window_slot_length: 20s
storage:
  audit_backend: mysql
  mysql:
    host: 127.0.0.1
    port: 3306
    database: scheduler
`), 0644))

	var cfg Config
	suite.NoError(common_config.Parse(&cfg, file))
	cfg.Normalize()

	suite.Equal(5*time.Second, cfg.Scheduler.SchedulePeriod)
	suite.Equal(4, cfg.Scheduler.FairnessIterationCap)
	suite.Require().NotNil(cfg.Scheduler.DefaultRescheduleTimeout)
	suite.Equal(_defaultRescheduleTimeout, *cfg.Scheduler.DefaultRescheduleTimeout)
	suite.Equal(_defaultTrafficImprovement, cfg.Scheduler.DefaultTrafficImprovement)
	suite.Equal(_defaultHTTPPort, cfg.Scheduler.HTTPPort)
	suite.Equal(time.Minute, cfg.Monitor.WindowLength())
	suite.Equal(int64(4000), cfg.Monitor.Capacity())
	suite.Equal("scheduler", cfg.Storage.MySQL.Database)
}

func (suite *ConfigTestSuite) TestZeroRescheduleTimeoutKept() {
	file := filepath.Join(suite.dir, "scheduler.yaml")
	suite.NoError(ioutil.WriteFile(file, []byte(`
scheduler:
  default_reschedule_timeout: 0s
`), 0644))

	var cfg Config
	suite.NoError(common_config.Parse(&cfg, file))
	cfg.Normalize()
	suite.Equal(time.Duration(0), cfg.Scheduler.RescheduleTimeout())

	tunables, err := ParseTunables(nil, cfg.Scheduler)
	suite.NoError(err)
	suite.Equal(time.Duration(0), tunables.RescheduleTimeout)
}

func (suite *ConfigTestSuite) TestRescheduleTimeoutDefault() {
	suite.Equal(_defaultRescheduleTimeout, suite.cfg.RescheduleTimeout())

	negative := -time.Second
	cfg := Config{Scheduler: SchedulerConfig{DefaultRescheduleTimeout: &negative}}
	cfg.Normalize()
	suite.Equal(_defaultRescheduleTimeout, cfg.Scheduler.RescheduleTimeout())
}

func (suite *ConfigTestSuite) TestParseRejectsOutOfRange() {
	file := filepath.Join(suite.dir, "scheduler.yaml")
	suite.NoError(ioutil.WriteFile(file, []byte(`
scheduler:
  default_traffic_improvement: 150
`), 0644))

	var cfg Config
	err := common_config.Parse(&cfg, file)
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestTunableDefaults() {
	t, err := ParseTunables(nil, suite.cfg)
	suite.NoError(err)
	suite.Equal(0.0, t.Alpha)
	suite.Equal(1.0, t.Beta)
	suite.False(t.GammaEnabled())
	suite.Equal(0.0, t.Delta)
	suite.Equal(10, t.TrafficImprovement)
	suite.Equal(180*time.Second, t.RescheduleTimeout)
}

func (suite *ConfigTestSuite) TestTunablesFromConf() {
	t, err := ParseTunables(map[string]string{
		AlphaKey:              "0.5",
		BetaKey:               "0",
		GammaKey:              "1.5",
		DeltaKey:              "1",
		TrafficImprovementKey: "20",
		RescheduleTimeoutKey:  "0",
	}, suite.cfg)
	suite.NoError(err)
	suite.Equal(0.5, t.Alpha)
	suite.Equal(0.0, t.Beta)
	suite.Equal(1.5, t.Gamma)
	suite.True(t.GammaEnabled())
	suite.Equal(1.0, t.Delta)
	suite.Equal(20, t.TrafficImprovement)
	suite.Equal(time.Duration(0), t.RescheduleTimeout)
}

func (suite *ConfigTestSuite) TestInvalidTunables() {
	tt := map[string]map[string]string{
		"alpha above one":       {AlphaKey: "1.1"},
		"alpha negative":        {AlphaKey: "-0.1"},
		"beta not a number":     {BetaKey: "x"},
		"gamma between 0 and 1": {GammaKey: "0.5"},
		"delta above one":       {DeltaKey: "2"},
		"improvement zero":      {TrafficImprovementKey: "0"},
		"improvement too big":   {TrafficImprovementKey: "101"},
		"improvement float":     {TrafficImprovementKey: "10.5"},
		"negative timeout":      {RescheduleTimeoutKey: "-1"},
	}
	for name, conf := range tt {
		_, err := ParseTunables(conf, suite.cfg)
		suite.Error(err, name)
		suite.Equal(ErrInvalidTunable, errors.Cause(err), name)
	}
}
