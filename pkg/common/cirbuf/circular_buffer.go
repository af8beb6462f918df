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

package cirbuf

import (
	"sync"
)

// CircularBuffer is a fixed capacity ring of int64 samples. Adding to a full
// buffer overwrites the oldest sample.
type CircularBuffer struct {
	sync.RWMutex
	buffer []int64
	// head is the sequence number of the next sample to be added
	head uint64
	// tail is the sequence number of the oldest retained sample
	tail uint64
	sum  int64
}

// NewCircularBuffer creates a circular buffer holding at most bufferSize
// samples. A non positive size is raised to one.
func NewCircularBuffer(bufferSize int) *CircularBuffer {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &CircularBuffer{
		buffer: make([]int64, bufferSize),
	}
}

// Capacity returns the total capacity of the buffer.
func (c *CircularBuffer) Capacity() int {
	return len(c.buffer)
}

// Size returns the number of retained samples.
func (c *CircularBuffer) Size() int {
	c.RLock()
	defer c.RUnlock()
	return int(c.head - c.tail)
}

// Add appends a sample, evicting the oldest one when the buffer is full.
// The evicted value and whether an eviction happened are returned.
func (c *CircularBuffer) Add(v int64) (int64, bool) {
	c.Lock()
	defer c.Unlock()

	var evicted int64
	full := int(c.head-c.tail) >= len(c.buffer)
	if full {
		evicted = c.buffer[c.tail%uint64(len(c.buffer))]
		c.sum -= evicted
		c.tail++
	}
	c.buffer[c.head%uint64(len(c.buffer))] = v
	c.sum += v
	c.head++
	return evicted, full
}

// Sum returns the sum of the retained samples.
func (c *CircularBuffer) Sum() int64 {
	c.RLock()
	defer c.RUnlock()
	return c.sum
}
