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

package storage

import (
	"github.com/uber-go/tally"
)

// Metrics tracks the calls made to a store, by result.
type Metrics struct {
	Read     tally.Counter
	ReadFail tally.Counter

	Write     tally.Counter
	WriteFail tally.Counter

	Reset     tally.Counter
	ResetFail tally.Counter

	AuditWrite     tally.Counter
	AuditWriteFail tally.Counter

	ClusterRead      tally.Counter
	ClusterReadFail  tally.Counter
	ClusterWrite     tally.Counter
	ClusterWriteFail tally.Counter

	ReadDuration tally.Timer
}

// NewMetrics returns a new Metrics struct rooted at the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	successScope := scope.Tagged(map[string]string{"result": "success"})
	failScope := scope.Tagged(map[string]string{"result": "fail"})

	return &Metrics{
		Read:     successScope.Counter("read"),
		ReadFail: failScope.Counter("read"),

		Write:     successScope.Counter("write"),
		WriteFail: failScope.Counter("write"),

		Reset:     successScope.Counter("reset"),
		ResetFail: failScope.Counter("reset"),

		AuditWrite:     successScope.Counter("audit_write"),
		AuditWriteFail: failScope.Counter("audit_write"),

		ClusterRead:      successScope.Counter("cluster_read"),
		ClusterReadFail:  failScope.Counter("cluster_read"),
		ClusterWrite:     successScope.Counter("cluster_write"),
		ClusterWriteFail: failScope.Counter("cluster_write"),

		ReadDuration: scope.Timer("read_duration"),
	}
}
