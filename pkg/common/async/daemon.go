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

package async

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Daemon is a long running loop that can be started and stopped repeatedly.
type Daemon interface {
	// Start launches the runnable unless it is already running.
	Start()

	// Stop cancels the runnable and blocks until it has returned.
	Stop()

	// Running reports whether the runnable is currently executing.
	Running() bool
}

// Runnable is the body of a daemon. Run must return once ctx is done.
type Runnable interface {
	Run(ctx context.Context) error
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnableFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type daemon struct {
	sync.Mutex

	name     string
	runnable Runnable

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDaemon creates a stopped daemon for the given runnable.
func NewDaemon(name string, runnable Runnable) Daemon {
	return &daemon{
		name:     name,
		runnable: runnable,
	}
}

func (d *daemon) Start() {
	d.Lock()
	defer d.Unlock()

	if d.done != nil {
		select {
		case <-d.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	go func() {
		defer close(done)
		if err := d.runnable.Run(ctx); err != nil && ctx.Err() == nil {
			log.WithField("name", d.name).
				WithError(err).
				Error("Daemon runnable returned with error")
		}
	}()

	log.WithField("name", d.name).Info("Daemon started")
}

func (d *daemon) Stop() {
	d.Lock()
	defer d.Unlock()

	if d.done == nil {
		return
	}
	d.cancel()
	<-d.done
	d.done = nil
	d.cancel = nil

	log.WithField("name", d.name).Info("Daemon stopped")
}

func (d *daemon) Running() bool {
	d.Lock()
	defer d.Unlock()

	if d.done == nil {
		return false
	}
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}
