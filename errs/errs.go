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

// Package errs defines the error taxonomy propagated by the timer store,
// caching store, and window aggregator. No error in this package is ever
// swallowed internally: callers are expected to propagate or classify it.
package errs

import "errors"

// Sentinel classes. Use errors.Is against these to classify a returned
// error; concrete errors are always wrapped with additional context via
// fmt.Errorf("%w: ...", sentinel, ...).
var (
	// ErrTransientStore marks an I/O failure on the underlying KV store.
	// The runtime is responsible for task restart.
	ErrTransientStore = errors.New("transient store error")

	// ErrUserCallback marks an error returned from an onTimer callback or
	// from evaluating a CustomWindowStart/Filter expression. Aggregator
	// panics are not recovered and so never carry it. Treated as fatal to
	// the task.
	ErrUserCallback = errors.New("user callback error")

	// ErrInvariantViolation marks a broken invariant: a malformed timer or
	// window key, use of a closed or exhausted iterator, an aggregate that
	// cannot be (de)serialized, or an expression that does not compile. A
	// watermark that moves backwards is not reported with it; the watermark
	// tracker ignores such a move. Always fatal.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAsyncWork marks a failed asynchronous unit of work captured by the
	// AsyncFlushCoordinator. Re-raised on the next AddFuture or Flush.
	ErrAsyncWork = errors.New("async work error")

	// ErrFlushTimeout marks a flush that could not join all outstanding
	// futures within FlushTimeout.
	ErrFlushTimeout = errors.New("flush timeout")
)
