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

package logging

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// LevelOverwrite is the endpoint of the level overwrite handler.
	LevelOverwrite = "/logging-level"

	_usage = "usage: GET `/logging-level?level=[info|debug|warn]&duration=<duration>`"
)

// levelOverwriter raises or lowers the global log level for a bounded
// duration, then restores the initial level. A new request replaces the
// pending reset of the previous one.
type levelOverwriter struct {
	sync.Mutex
	initial log.Level
	reset   *time.Timer
}

func (o *levelOverwriter) overwrite(level log.Level, d time.Duration) {
	o.Lock()
	defer o.Unlock()

	if o.reset != nil {
		o.reset.Stop()
	}
	log.SetLevel(level)
	o.reset = time.AfterFunc(d, func() {
		log.WithField("initial_level", o.initial).
			Info("Resetting log level after overwrite expired")
		log.SetLevel(o.initial)
	})
}

// LevelOverwriteHandler returns a handler that changes the logging level for
// the given duration.
func LevelOverwriteHandler(initialLevel log.Level) http.HandlerFunc {
	log.SetLevel(initialLevel)
	o := &levelOverwriter{initial: initialLevel}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		level, err := log.ParseLevel(query.Get("level"))
		if err != nil {
			writeError(w, err)
			return
		}
		switch level {
		case log.DebugLevel, log.InfoLevel, log.WarnLevel:
		default:
			writeError(w, fmt.Errorf("level %s cannot be overwritten", level))
			return
		}
		d, err := time.ParseDuration(query.Get("duration"))
		if err != nil {
			writeError(w, err)
			return
		}

		log.WithFields(log.Fields{
			"new_level": level,
			"duration":  d,
		}).Info("Overwriting log level")
		o.overwrite(level, d)

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Level changed to %s for the next %v.\n", level, d)
	}
}

func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
	fmt.Fprintln(w, _usage)
}
