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

// Package runtime declares the collaborators the core consumes but never
// implements: the host streaming runtime (partitioning, record delivery,
// topology construction, changelog replication) and its metrics sink. Only
// the shapes the window aggregator and timer store call through are
// declared here.
package runtime

// PunctuationType selects what clock drives a scheduled callback.
type PunctuationType int

const (
	// StreamTime callbacks fire as the task's event-time watermark advances.
	StreamTime PunctuationType = iota
	// WallClock callbacks fire on a real-time ticker, independent of data.
	WallClock
)

// ProcessorContext is the host runtime collaborator the window aggregator
// and timer store are driven through. A real implementation is part of the
// host streaming engine (topology construction, partitioning, changelog
// replication) and is out of scope for this module.
type ProcessorContext interface {
	// Forward emits a record downstream, stamped with the given event time.
	Forward(key interface{}, value interface{}, timestamp int64)

	// SchedulePunctuation registers a periodic callback on the given clock.
	// Returns a cancel function.
	SchedulePunctuation(interval int64, kind PunctuationType, callback func(timestamp int64)) (cancel func())

	// OnCommit registers a callback invoked immediately before each commit;
	// the caching store's flush listener is driven from here.
	OnCommit(callback func())
}

// Record is a single delivered message: a key, a value, an event-time
// timestamp in epoch milliseconds, and free-form headers.
type Record struct {
	Key       interface{}
	Value     interface{}
	EventTime int64
	Headers   map[string]string
}

// Metrics is the observational counters collaborator. Every counter here is
// observational only — never a recovery mechanism — per the error handling
// design. A nil Metrics is valid; callers that don't care about counters
// may leave it unset and NopMetrics is used internally.
type Metrics interface {
	IncRestatements()
	IncClosedWindows()
	IncExpiredWindows()
	IncEmitEarly()
	SetOutstandingFutures(n int)
}

// NopMetrics discards every counter. It is the default when a caller
// constructs a component without supplying a Metrics collaborator.
type NopMetrics struct{}

func (NopMetrics) IncRestatements()         {}
func (NopMetrics) IncClosedWindows()        {}
func (NopMetrics) IncExpiredWindows()       {}
func (NopMetrics) IncEmitEarly()            {}
func (NopMetrics) SetOutstandingFutures(int) {}
