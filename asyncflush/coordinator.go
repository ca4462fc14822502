/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package asyncflush implements the AsyncFlushCoordinator (component E):
// bounded outstanding async work with join-on-flush and failure
// propagation. Modeled after the semaphore/atomic-counter patterns the
// teacher's Stream type uses to bound its own retry goroutines.
package asyncflush

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/eventwindow/errs"
	"github.com/rulego/eventwindow/runtime"
)

// Work is a unit of asynchronous downstream work associated with a
// key/value pair, e.g. an async sink write.
type Work func() error

// Coordinator bounds the number of outstanding Work units per task and
// lets the caller join on all of them at a flush boundary. Cancellation is
// not supported — timeouts are observed only on Flush, never per-unit.
type Coordinator struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	metrics runtime.Metrics

	mu           sync.Mutex
	asyncFailure error

	onSuccess func(key, value interface{})
	onFailure func(key, value interface{}, err error)

	outstanding int32
}

// New builds a Coordinator allowing up to maxOutstanding units of work in
// flight at once. A nil metrics collaborator defaults to NopMetrics.
func New(maxOutstanding int, metrics runtime.Metrics) *Coordinator {
	if metrics == nil {
		metrics = runtime.NopMetrics{}
	}
	return &Coordinator{
		sem:     make(chan struct{}, maxOutstanding),
		metrics: metrics,
	}
}

// OnSuccess registers the callback invoked when a unit of work completes
// without error. Overridable by callers that want custom bookkeeping.
func (c *Coordinator) OnSuccess(f func(key, value interface{})) {
	c.onSuccess = f
}

// OnFailure registers the callback invoked when a unit of work returns an
// error, in addition to the error being captured as the coordinator's
// asyncFailure.
func (c *Coordinator) OnFailure(f func(key, value interface{}, err error)) {
	c.onFailure = f
}

// AddFuture acquires one permit (blocking — this is the backpressure
// mechanism) and runs work on its own goroutine. If a prior unit of work
// failed and that failure hasn't been observed yet, AddFuture re-raises it
// immediately instead of scheduling new work.
func (c *Coordinator) AddFuture(key, value interface{}, work Work) error {
	if err := c.ThrowIfAsyncFailure(); err != nil {
		return err
	}

	c.sem <- struct{}{}
	atomic.AddInt32(&c.outstanding, 1)
	c.metrics.SetOutstandingFutures(int(atomic.LoadInt32(&c.outstanding)))
	c.wg.Add(1)

	go func() {
		defer func() {
			<-c.sem
			atomic.AddInt32(&c.outstanding, -1)
			c.metrics.SetOutstandingFutures(int(atomic.LoadInt32(&c.outstanding)))
			c.wg.Done()
		}()

		err := work()
		if err != nil {
			wrapped := fmt.Errorf("%w: %v", errs.ErrAsyncWork, err)
			c.mu.Lock()
			if c.asyncFailure == nil {
				c.asyncFailure = wrapped
			}
			c.mu.Unlock()
			if c.onFailure != nil {
				c.onFailure(key, value, wrapped)
			}
			return
		}
		if c.onSuccess != nil {
			c.onSuccess(key, value)
		}
	}()
	return nil
}

// ThrowIfAsyncFailure returns and clears any captured async failure.
// Ordering of completions is not guaranteed, so the specific unit of work
// that failed is not identified by this call — only that at least one did.
func (c *Coordinator) ThrowIfAsyncFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asyncFailure != nil {
		err := c.asyncFailure
		c.asyncFailure = nil
		return err
	}
	return nil
}

// OnFlush joins every outstanding unit of work, bounded by flushTimeout.
// On timeout it returns ErrFlushTimeout without waiting further; the
// goroutines themselves are not canceled and continue running to
// completion in the background, each holding its semaphore slot until it
// finishes.
func (c *Coordinator) OnFlush(flushTimeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(flushTimeout):
		return fmt.Errorf("%w: outstanding futures did not complete within %s", errs.ErrFlushTimeout, flushTimeout)
	}

	return c.ThrowIfAsyncFailure()
}

// NumOutstandingFutures is the gauge: max - available permits.
func (c *Coordinator) NumOutstandingFutures() int {
	return int(atomic.LoadInt32(&c.outstanding))
}
