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

package monitor

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

const (
	// LoadPath receives executor load samples.
	LoadPath = "/telemetry/load"
	// TrafficPath receives tuple counts between tasks.
	TrafficPath = "/telemetry/traffic"

	_loadUsage    = "usage: POST `/telemetry/load?job=<id>&begin=<task>&end=<task>&cycles=<n>`"
	_trafficUsage = "usage: POST `/telemetry/traffic?job=<id>&source=<task>&destination=<task>&tuples=<n>`"
)

// LoadHandler records the load samples posted by the workers of the node.
func LoadHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, errors.Errorf("method %s not allowed", r.Method), _loadUsage)
			return
		}
		q := &query{values: r.URL.Query()}
		job := q.job()
		begin := q.parseInt("begin")
		end := q.parseInt("end")
		cycles := q.parseInt64("cycles")
		if q.err == nil && begin > end {
			q.err = errors.Errorf("begin %d after end %d", begin, end)
		}
		if q.err != nil {
			writeError(w, q.err, _loadUsage)
			return
		}
		m.RecordLoad(job, begin, end, cycles)
		w.WriteHeader(http.StatusOK)
	}
}

// TrafficHandler records the tuple counts posted by the workers of the
// node.
func TrafficHandler(m *Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, errors.Errorf("method %s not allowed", r.Method), _trafficUsage)
			return
		}
		q := &query{values: r.URL.Query()}
		job := q.job()
		source := q.parseInt("source")
		destination := q.parseInt("destination")
		tuples := q.parseInt64("tuples")
		if q.err != nil {
			writeError(w, q.err, _trafficUsage)
			return
		}
		m.RecordTuples(job, source, destination, tuples)
		w.WriteHeader(http.StatusOK)
	}
}

// query parses parameters, keeping the first error.
type query struct {
	values map[string][]string
	err    error
}

func (q *query) get(name string) string {
	if v := q.values[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (q *query) job() string {
	id := q.get("job")
	if id == "" && q.err == nil {
		q.err = errors.New("missing job")
	}
	return id
}

func (q *query) parseInt64(name string) int64 {
	v, err := strconv.ParseInt(q.get(name), 10, 64)
	if err == nil && v < 0 {
		err = errors.New("negative value")
	}
	if err != nil && q.err == nil {
		q.err = errors.Wrapf(err, "invalid %s", name)
	}
	return v
}

func (q *query) parseInt(name string) int {
	return int(q.parseInt64(name))
}

func writeError(w http.ResponseWriter, err error, usage string) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
	fmt.Fprintln(w, usage)
}
