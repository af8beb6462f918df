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

package models

import (
	"github.com/pkg/errors"
)

var (
	// ErrInfeasible is returned when no slot or node can accept an entity
	// that has to be placed.
	ErrInfeasible = errors.New("no feasible placement")

	// ErrAlreadyAssigned is returned when assigning an entity that is
	// already held by a slot or node.
	ErrAlreadyAssigned = errors.New("already assigned")

	// ErrNotAssigned is returned when removing an entity that is not held
	// by the slot or node.
	ErrNotAssigned = errors.New("not assigned")

	// ErrNoExecutors is returned when building a job without executors.
	ErrNoExecutors = errors.New("job has no executors")

	// ErrNoWorkers is returned when building a job without workers.
	ErrNoWorkers = errors.New("job has no workers")
)
