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

package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

var (
	errEmptyName     = errors.New("background work name cannot be empty")
	errDuplicateName = errors.New("duplicate background work name")
	errInvalidPeriod = errors.New("background work period must be positive")
)

// Work is a piece of background work which needs to happen periodically.
type Work struct {
	Name string
	// Func is called once per period. ctx is cancelled when the work is
	// stopped.
	Func         func(ctx context.Context)
	Period       time.Duration
	InitialDelay time.Duration
}

// Manager starts and stops a set of registered works together.
type Manager interface {
	// Start starts all registered works.
	Start()
	// Stop stops all registered works and waits for them to return.
	Stop()
	// RegisterWork registers a work against the Manager.
	RegisterWork(work Work) error
}

type manager struct {
	sync.Mutex
	runners map[string]*runner
}

// NewManager creates a Manager with the given works registered.
func NewManager(works ...Work) (Manager, error) {
	m := &manager{
		runners: make(map[string]*runner),
	}
	for _, work := range works {
		if err := m.RegisterWork(work); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *manager) RegisterWork(work Work) error {
	if work.Name == "" {
		return errEmptyName
	}
	if work.Period <= 0 {
		return errors.Wrap(errInvalidPeriod, work.Name)
	}

	m.Lock()
	defer m.Unlock()
	if _, ok := m.runners[work.Name]; ok {
		return errors.Wrap(errDuplicateName, work.Name)
	}
	m.runners[work.Name] = &runner{work: work}
	return nil
}

// sorted returns runners by name so start and stop order is stable.
func (m *manager) sorted() []*runner {
	m.Lock()
	defer m.Unlock()

	names := make([]string, 0, len(m.runners))
	for name := range m.runners {
		names = append(names, name)
	}
	sort.Strings(names)

	runners := make([]*runner, 0, len(names))
	for _, name := range names {
		runners = append(runners, m.runners[name])
	}
	return runners
}

func (m *manager) Start() {
	for _, r := range m.sorted() {
		r.start()
	}
}

func (m *manager) Stop() {
	for _, r := range m.sorted() {
		r.stop()
	}
}

type runner struct {
	sync.Mutex

	work    Work
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func (r *runner) start() {
	r.Lock()
	defer r.Unlock()

	if r.running.Swap(true) {
		log.WithField("name", r.work.Name).
			Info("Background work is already running, no-op.")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		if r.work.InitialDelay > 0 {
			initial := time.NewTimer(r.work.InitialDelay)
			select {
			case <-ctx.Done():
				initial.Stop()
				return
			case <-initial.C:
			}
			r.work.Func(ctx)
		}

		ticker := time.NewTicker(r.work.Period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.work.Func(ctx)
			}
		}
	}()

	log.WithFields(log.Fields{
		"name":          r.work.Name,
		"period":        r.work.Period,
		"initial_delay": r.work.InitialDelay,
	}).Info("Background work started")
}

func (r *runner) stop() {
	r.Lock()
	defer r.Unlock()

	if !r.running.Load() {
		log.WithField("name", r.work.Name).
			Debug("Background work is not running, no-op.")
		return
	}

	r.cancel()
	r.wg.Wait()
	r.running.Store(false)
	log.WithField("name", r.work.Name).Info("Background work stopped")
}
