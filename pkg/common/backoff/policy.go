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

package backoff

import (
	"time"
)

// done is returned by a policy when no further attempt should be made.
const done time.Duration = -1

// RetryPolicy computes the delay to wait before the next attempt.
type RetryPolicy interface {
	// CalculateNextDelay returns the delay after the given number of failed
	// attempts, or a negative duration to stop retrying.
	CalculateNextDelay(attempts int) time.Duration
}

type retryPolicy struct {
	maxAttempts int
	interval    time.Duration
}

// NewRetryPolicy returns a policy retrying up to maxAttempts times with a
// constant interval.
func NewRetryPolicy(maxAttempts int, interval time.Duration) RetryPolicy {
	return &retryPolicy{
		maxAttempts: maxAttempts,
		interval:    interval,
	}
}

func (p *retryPolicy) CalculateNextDelay(attempts int) time.Duration {
	if attempts >= p.maxAttempts {
		return done
	}
	return p.interval
}
