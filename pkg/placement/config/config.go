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
	"time"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/logging"
	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/common/metrics"
	storage_config "github.com/leonardoaniello/storm-adaptive-schedulers/pkg/storage/config"
)

const (
	_defaultSchedulePeriod     = 10 * time.Second
	_defaultRescheduleTimeout  = 180 * time.Second
	_defaultTrafficImprovement = 10
	_defaultWindowSlotCount    = 6
	_defaultWindowSlotLength   = 10 * time.Second
	_defaultCapacityPercent    = 100
	_defaultHTTPPort           = 5303
)

// Config holds all configs to run the scheduler.
type Config struct {
	Metrics   metrics.Config        `yaml:"metrics"`
	Scheduler SchedulerConfig       `yaml:"scheduler"`
	Monitor   MonitorConfig         `yaml:"monitor"`
	Storage   storage_config.Config `yaml:"storage"`
	Sentry    logging.SentryConfig  `yaml:"sentry"`
}

// SchedulerConfig is the config of the decision loop.
type SchedulerConfig struct {
	// HTTP port serving metrics, health and the logging level endpoint.
	HTTPPort int `yaml:"http_port"`

	// SchedulePeriod is the period at which the scheduler is invoked
	// when running standalone.
	SchedulePeriod time.Duration `yaml:"schedule_period"`

	// DefaultRescheduleTimeout is the reschedule timeout of jobs that
	// do not set one. Zero lets every round apply its placement.
	DefaultRescheduleTimeout *time.Duration `yaml:"default_reschedule_timeout"`

	// DefaultTrafficImprovement is the traffic improvement percentage of
	// jobs that do not set one.
	DefaultTrafficImprovement int `yaml:"default_traffic_improvement" validate:"min=0,max=100"`

	// FairnessIterationCap bounds the moves of the fairness pass per job.
	// Zero means the number of nodes plus one.
	FairnessIterationCap int `yaml:"fairness_iteration_cap" validate:"min=0"`
}

// RescheduleTimeout returns the default reschedule timeout, falling back to
// the built in one when unset.
func (c SchedulerConfig) RescheduleTimeout() time.Duration {
	if c.DefaultRescheduleTimeout == nil {
		return _defaultRescheduleTimeout
	}
	return *c.DefaultRescheduleTimeout
}

// MonitorConfig is the config of the telemetry loop of a node.
type MonitorConfig struct {
	Enabled bool `yaml:"enabled"`

	// Node is the name the node is registered with. Defaults to the
	// hostname.
	Node string `yaml:"node"`

	// TotalSpeed is the summed speed of all cores in cycles per second.
	TotalSpeed int64 `yaml:"total_speed" validate:"min=0"`

	// CapacityPercent is the share of TotalSpeed the scheduler may use.
	CapacityPercent int `yaml:"capacity_percent" validate:"min=0,max=100"`

	// Cores is the number of cores of the node.
	Cores int `yaml:"cores" validate:"min=0"`

	// WindowSlotCount and WindowSlotLength define the telemetry window.
	WindowSlotCount  int           `yaml:"window_slot_count" validate:"min=0"`
	WindowSlotLength time.Duration `yaml:"window_slot_length"`
}

// WindowLength is the length of the telemetry window.
func (c MonitorConfig) WindowLength() time.Duration {
	return time.Duration(c.WindowSlotCount) * c.WindowSlotLength
}

// Capacity is the load the node may host, in cycles per second.
func (c MonitorConfig) Capacity() int64 {
	return c.TotalSpeed * int64(c.CapacityPercent) / 100
}

// Normalize fills the unset values with their defaults.
func (c *Config) Normalize() {
	s := &c.Scheduler
	if s.HTTPPort == 0 {
		s.HTTPPort = _defaultHTTPPort
	}
	if s.SchedulePeriod <= 0 {
		s.SchedulePeriod = _defaultSchedulePeriod
	}
	if s.DefaultRescheduleTimeout == nil || *s.DefaultRescheduleTimeout < 0 {
		d := _defaultRescheduleTimeout
		s.DefaultRescheduleTimeout = &d
	}
	if s.DefaultTrafficImprovement == 0 {
		s.DefaultTrafficImprovement = _defaultTrafficImprovement
	}

	m := &c.Monitor
	if m.WindowSlotCount == 0 {
		m.WindowSlotCount = _defaultWindowSlotCount
	}
	if m.WindowSlotLength <= 0 {
		m.WindowSlotLength = _defaultWindowSlotLength
	}
	if m.CapacityPercent == 0 {
		m.CapacityPercent = _defaultCapacityPercent
	}
}
