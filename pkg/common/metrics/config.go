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
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	tallyprom "github.com/uber-go/tally/prometheus"
	tallystatsd "github.com/uber-go/tally/statsd"
)

const (
	// MetricsPath serves prometheus metrics when enabled.
	MetricsPath = "/metrics"
	// HealthPath serves the liveness probe.
	HealthPath = "/health"
)

// Config is the metrics reporter configuration.
type Config struct {
	Prometheus *PrometheusConfig `yaml:"prometheus"`
	Statsd     *StatsdConfig     `yaml:"statsd"`
}

// PrometheusConfig enables the prometheus reporter.
type PrometheusConfig struct {
	Enable bool `yaml:"enable"`
}

// StatsdConfig enables the statsd reporter.
type StatsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

// InitMetricScope initializes a root scope, its closer and an http mux
// carrying the metrics and health handlers. Prometheus wins over statsd when
// both are enabled; with neither, a noop statsd client is used.
func InitMetricScope(
	cfg *Config,
	rootMetricScope string,
	metricFlushInterval time.Duration) (tally.Scope, io.Closer, *nethttp.ServeMux, error) {
	mux := nethttp.NewServeMux()
	if cfg == nil {
		cfg = &Config{}
	}

	var reporter tally.StatsReporter
	var promReporter tallyprom.Reporter
	separator := "."
	switch {
	case cfg.Prometheus != nil && cfg.Prometheus.Enable:
		// tally panics if the scope name contains "-"
		rootMetricScope = strings.Replace(rootMetricScope, "-", "_", -1)
		separator = tallyprom.DefaultSeparator
		promReporter = tallyprom.NewReporter(tallyprom.Options{})
	case cfg.Statsd != nil && cfg.Statsd.Enable:
		log.WithField("endpoint", cfg.Statsd.Endpoint).
			Info("Metrics configured with statsd endpoint")
		c, err := statsd.NewClient(cfg.Statsd.Endpoint, "")
		if err != nil {
			return nil, nil, nil, err
		}
		reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	default:
		log.Warn("No metrics backends configured, using the statsd.NoopClient")
		c, _ := statsd.NewNoopClient()
		reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	}

	mux.HandleFunc(HealthPath, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		fmt.Fprintln(w, `\(★ω★)/`)
	})

	opts := tally.ScopeOptions{
		Prefix:    rootMetricScope,
		Tags:      map[string]string{},
		Separator: separator,
	}
	if promReporter != nil {
		log.Info("Setting up prometheus metrics handler at /metrics")
		mux.Handle(MetricsPath, promReporter.HTTPHandler())
		opts.CachedReporter = promReporter
	} else {
		opts.Reporter = reporter
	}

	scope, closer := tally.NewRootScope(opts, metricFlushInterval)
	return scope, closer, mux, nil
}
