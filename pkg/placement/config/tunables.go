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
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
)

// Keys of the tunables in the runtime configuration of a job.
const (
	AlphaKey              = "alfa"
	BetaKey               = "beta"
	GammaKey              = "gamma"
	DeltaKey              = "delta"
	TrafficImprovementKey = "traffic.improvement"
	RescheduleTimeoutKey  = "reschedule.timeout"
)

// ErrInvalidTunable is returned when a tunable of a job can not be parsed
// or is out of its range.
var ErrInvalidTunable = errors.New("invalid tunable")

// ParseTunables reads the tunables of a job from its runtime configuration.
// Absent keys take the capacity model defaults and the reschedule gate
// defaults of the scheduler config.
func ParseTunables(conf map[string]string, cfg SchedulerConfig) (models.Tunables, error) {
	t := models.DefaultTunables()
	t.TrafficImprovement = cfg.DefaultTrafficImprovement
	t.RescheduleTimeout = cfg.RescheduleTimeout()

	var err error
	if t.Alpha, err = parseFloat(conf, AlphaKey, t.Alpha, unit); err != nil {
		return t, err
	}
	if t.Beta, err = parseFloat(conf, BetaKey, t.Beta, unit); err != nil {
		return t, err
	}
	if t.Gamma, err = parseFloat(conf, GammaKey, t.Gamma, gamma); err != nil {
		return t, err
	}
	if t.Delta, err = parseFloat(conf, DeltaKey, t.Delta, unit); err != nil {
		return t, err
	}

	if v, ok := conf[TrafficImprovementKey]; ok {
		ti, err := strconv.Atoi(v)
		if err != nil || ti < 1 || ti > 100 {
			return t, errors.Wrapf(ErrInvalidTunable, "%s=%q, want an integer in [1, 100]",
				TrafficImprovementKey, v)
		}
		t.TrafficImprovement = ti
	}

	if v, ok := conf[RescheduleTimeoutKey]; ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return t, errors.Wrapf(ErrInvalidTunable, "%s=%q, want a non negative number of seconds",
				RescheduleTimeoutKey, v)
		}
		t.RescheduleTimeout = time.Duration(secs) * time.Second
	}
	return t, nil
}

type floatRange struct {
	valid func(float64) bool
	want  string
}

var (
	unit = floatRange{
		valid: func(v float64) bool { return v >= 0 && v <= 1 },
		want:  "a number in [0, 1]",
	}
	gamma = floatRange{
		valid: func(v float64) bool { return v >= 1 || v < 0 },
		want:  "a number >= 1, or negative to disable",
	}
)

func parseFloat(conf map[string]string, key string, def float64, r floatRange) (float64, error) {
	v, ok := conf[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !r.valid(f) {
		return def, errors.Wrapf(ErrInvalidTunable, "%s=%q, want %s", key, v, r.want)
	}
	return f, nil
}
