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
	"github.com/pkg/errors"
)

// Builder assembles a StateMachine.
type Builder struct {
	name               string
	current            State
	rules              map[State]*Rule
	transitionCallback Callback
}

// NewBuilder creates a new state machine builder.
func NewBuilder() *Builder {
	return &Builder{
		rules: make(map[State]*Rule),
	}
}

// WithName sets the name of the state machine.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithCurrentState sets the initial state.
func (b *Builder) WithCurrentState(current State) *Builder {
	b.current = current
	return b
}

// AddRule adds a rule. A later rule with the same From replaces the earlier.
func (b *Builder) AddRule(rule *Rule) *Builder {
	b.rules[rule.From] = rule
	return b
}

// WithTransitionCallback sets the callback run on every transition.
func (b *Builder) WithTransitionCallback(callback Callback) *Builder {
	b.transitionCallback = callback
	return b
}

// Build builds the state machine.
func (b *Builder) Build() (StateMachine, error) {
	if b.current == "" {
		return nil, errors.New("state machine needs an initial state")
	}
	sm, err := newStateMachine(b.name, b.current, b.rules, b.transitionCallback)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return sm, nil
}
