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

package types

import (
	"time"

	"github.com/spf13/cast"
)

// Config carries every recognized option from the window aggregator's
// configuration table. It mirrors the window/flush tuning knobs a caller
// assembles once per task.
type Config struct {
	WindowSize          time.Duration `json:"windowSize"`
	AllowedLateness     time.Duration `json:"allowedLateness"`
	QueryableAfterClose time.Duration `json:"queryableAfterClose"`

	EmitOnClose                bool `json:"emitOnClose"`
	EmitUpdatedEntriesOnCommit bool `json:"emitUpdatedEntriesOnCommit"`

	MaxTimerFiresPerWatermark    int           `json:"maxTimerFiresPerWatermark"`
	MaxOutstandingFuturesPerTask int           `json:"maxOutstandingFuturesPerTask"`
	FlushTimeout                time.Duration `json:"flushTimeout"`

	// CustomWindowStart, when non-empty, is an expr-lang expression
	// evaluated against the record to compute the window start instead of
	// the default `time - (time mod windowSize)`.
	CustomWindowStart string `json:"customWindowStart"`

	// Filter, when non-empty, is an expr-lang boolean expression evaluated
	// against the record before onMessage runs; records for which it
	// evaluates false are dropped before they ever reach the lateness
	// check.
	Filter string `json:"filter"`
}

// DefaultConfig returns a Config with the bounds the design notes call out
// explicitly (max timer fires per watermark, outstanding futures, flush
// timeout); window size and lateness have no sane default and must be set
// by the caller.
func DefaultConfig() Config {
	return Config{
		EmitOnClose:                  true,
		EmitUpdatedEntriesOnCommit:   false,
		MaxTimerFiresPerWatermark:    1000,
		MaxOutstandingFuturesPerTask: 100,
		FlushTimeout:                 30 * time.Second,
	}
}

// FromMap builds a Config from a loosely typed option map, the shape a
// caller gets back from parsing JSON/YAML. Values are coerced with
// spf13/cast so callers can supply durations as "30s" strings, numbers as
// json.Number/float64, and so on without pre-normalizing them.
func FromMap(opts map[string]interface{}) (Config, error) {
	cfg := DefaultConfig()

	if v, ok := opts["windowSize"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, err
		}
		cfg.WindowSize = d
	}
	if v, ok := opts["allowedLateness"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, err
		}
		cfg.AllowedLateness = d
	}
	if v, ok := opts["queryableAfterClose"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, err
		}
		cfg.QueryableAfterClose = d
	}
	if v, ok := opts["emitOnClose"]; ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return cfg, err
		}
		cfg.EmitOnClose = b
	}
	if v, ok := opts["emitUpdatedEntriesOnCommit"]; ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return cfg, err
		}
		cfg.EmitUpdatedEntriesOnCommit = b
	}
	if v, ok := opts["maxTimerFiresPerWatermark"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return cfg, err
		}
		cfg.MaxTimerFiresPerWatermark = n
	}
	if v, ok := opts["maxOutstandingFuturesPerTask"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return cfg, err
		}
		cfg.MaxOutstandingFuturesPerTask = n
	}
	if v, ok := opts["flushTimeout"]; ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return cfg, err
		}
		cfg.FlushTimeout = d
	}
	if v, ok := opts["customWindowStart"]; ok {
		cfg.CustomWindowStart = cast.ToString(v)
	}
	if v, ok := opts["filter"]; ok {
		cfg.Filter = cast.ToString(v)
	}
	return cfg, nil
}
