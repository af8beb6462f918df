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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

var (
	errTest  = errors.New("test error")
	errFatal = errors.New("fatal error")
)

type RetryTestSuite struct {
	suite.Suite
}

func TestRetryTestSuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (s *RetryTestSuite) TestConstantPolicy() {
	p := NewRetryPolicy(3, 5*time.Millisecond)
	s.Equal(5*time.Millisecond, p.CalculateNextDelay(1))
	s.Equal(5*time.Millisecond, p.CalculateNextDelay(2))
	s.True(p.CalculateNextDelay(3) < 0)
}

func (s *RetryTestSuite) TestRetrySuccess() {
	i := 0
	op := func() error {
		i++
		if i == 5 {
			return nil
		}
		return errTest
	}
	s.NoError(Retry(context.Background(), op, NewRetryPolicy(5, time.Millisecond), nil))
	s.Equal(5, i)
}

func (s *RetryTestSuite) TestRetryExhausted() {
	i := 0
	op := func() error {
		i++
		return errTest
	}
	s.Equal(errTest, Retry(context.Background(), op, NewRetryPolicy(3, time.Millisecond), nil))
	s.Equal(3, i)
}

func (s *RetryTestSuite) TestRetryNotRetryable() {
	i := 0
	op := func() error {
		i++
		return errFatal
	}
	err := Retry(context.Background(), op, NewRetryPolicy(5, time.Millisecond),
		func(err error) bool { return err != errFatal })
	s.Equal(errFatal, err)
	s.Equal(1, i)
}

func (s *RetryTestSuite) TestRetryContextCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	i := 0
	op := func() error {
		i++
		return errTest
	}
	s.Equal(errTest, Retry(ctx, op, NewRetryPolicy(5, time.Hour), nil))
	s.Equal(1, i)
}
