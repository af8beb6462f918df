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

package statemachine

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// State is a named state of a state machine.
type State string

// Transition describes a state change and is handed to callbacks.
type Transition struct {
	StateMachine StateMachine
	From         State
	To           State
	// Params are the arguments given to TransitTo.
	Params []interface{}
}

// Callback is invoked after a transition has been committed, with the state
// machine still locked: it must not call back into the state machine.
type Callback func(*Transition) error

// Rule lists the states reachable from From. Callback, if set, runs on
// every transition leaving From.
type Rule struct {
	From     State
	To       []State
	Callback Callback
}

// StateMachine moves an object between states along its rules.
type StateMachine interface {
	// TransitTo moves to the given state if a rule allows it.
	TransitTo(to State, reason string, args ...interface{}) error
	// GetCurrentState returns the current state.
	GetCurrentState() State
	// GetReason returns the reason of the last transition.
	GetReason() string
	// GetName returns the name of the state machine.
	GetName() string
	// GetLastUpdateTime returns when the last transition happened.
	GetLastUpdateTime() time.Time
}

type statemachine struct {
	sync.RWMutex

	name               string
	current            State
	reason             string
	lastUpdatedTime    time.Time
	rules              map[State]*Rule
	transitionCallback Callback
}

func newStateMachine(
	name string,
	current State,
	rules map[State]*Rule,
	transitionCallback Callback) (*statemachine, error) {
	for from, r := range rules {
		seen := make(map[State]bool, len(r.To))
		for _, to := range r.To {
			if seen[to] {
				return nil, errors.Errorf(
					"duplicate destination %s in rule from %s", to, from)
			}
			seen[to] = true
		}
	}
	return &statemachine{
		name:               name,
		current:            current,
		reason:             "state machine created",
		lastUpdatedTime:    time.Now(),
		rules:              rules,
		transitionCallback: transitionCallback,
	}, nil
}

func (sm *statemachine) TransitTo(to State, reason string, args ...interface{}) error {
	sm.Lock()
	defer sm.Unlock()

	from := sm.current
	if from == to {
		return errors.Errorf("%s already in state %s", sm.name, to)
	}
	rule, ok := sm.rules[from]
	if !ok || !contains(rule.To, to) {
		return errors.Errorf("invalid transition for %s [from %s to %s]",
			sm.name, from, to)
	}

	sm.current = to
	sm.reason = reason
	sm.lastUpdatedTime = time.Now()

	t := &Transition{
		StateMachine: sm,
		From:         from,
		To:           to,
		Params:       args,
	}
	if rule.Callback != nil {
		if err := rule.Callback(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name": sm.name,
				"from": from,
				"to":   to,
			}).Error("rule callback failed")
			return err
		}
	}
	if sm.transitionCallback != nil {
		if err := sm.transitionCallback(t); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"name": sm.name,
				"from": from,
				"to":   to,
			}).Error("transition callback failed")
			return err
		}
	}
	return nil
}

func (sm *statemachine) GetCurrentState() State {
	sm.RLock()
	defer sm.RUnlock()
	return sm.current
}

func (sm *statemachine) GetReason() string {
	sm.RLock()
	defer sm.RUnlock()
	return sm.reason
}

// GetName does not lock, the name never changes.
func (sm *statemachine) GetName() string {
	return sm.name
}

func (sm *statemachine) GetLastUpdateTime() time.Time {
	sm.RLock()
	defer sm.RUnlock()
	return sm.lastUpdatedTime
}

func contains(states []State, s State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
