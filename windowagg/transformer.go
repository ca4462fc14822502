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

package windowagg

import (
	"fmt"
	"time"

	"github.com/rulego/eventwindow/errs"
	"github.com/rulego/eventwindow/kvstore"
	"github.com/rulego/eventwindow/logger"
	"github.com/rulego/eventwindow/runtime"
	"github.com/rulego/eventwindow/timerstore"
	"github.com/rulego/eventwindow/types"
	"github.com/rulego/eventwindow/watermark"
)

// Initializer produces the zero accumulator for a window that has not yet
// seen a record.
type Initializer func() interface{}

// Aggregator folds one (key, value) record into an existing accumulator,
// returning the new accumulator. It has no error return by design: a
// failing fold belongs in the initializer/aggregator pair's own domain
// logic, not in the transformer's control flow.
type Aggregator func(key string, value interface{}, acc interface{}) interface{}

// Transformer is the tumbling-window aggregation engine (component F). One
// instance is owned exclusively by a single stream task, along with its
// caching stores, watermark tracker, and timer store — see the scheduling
// model: every method here is called sequentially from that task's thread.
type Transformer struct {
	cfg types.Config

	aggStore   *kvstore.CachingKVStore
	timerCache *kvstore.CachingKVStore
	timers     *timerstore.PersistentTimerStore
	wm         *watermark.Tracker
	ctx        runtime.ProcessorContext
	metrics    runtime.Metrics
	log        logger.Logger

	initializer Initializer
	aggregator  Aggregator

	windowStart *windowStartExpr
	filter      *filterExpr

	windowSizeMs      int64
	allowedLatenessMs int64
	queryableMs       int64

	nonExpiredWindowStarts map[int64]bool

	pendingErr error
}

// New builds a Transformer wired to aggStore (the aggregate state store)
// and timerCache (the backing store for its own PersistentTimerStore),
// driven by wm and ctx. A nil metrics collaborator defaults to NopMetrics.
func New(cfg types.Config, aggStore, timerCache *kvstore.CachingKVStore, ctx runtime.ProcessorContext, wm *watermark.Tracker, metrics runtime.Metrics, initializer Initializer, aggregator Aggregator) (*Transformer, error) {
	if metrics == nil {
		metrics = runtime.NopMetrics{}
	}

	t := &Transformer{
		cfg:                    cfg,
		aggStore:               aggStore,
		timerCache:             timerCache,
		wm:                     wm,
		ctx:                    ctx,
		metrics:                metrics,
		log:                    logger.GetDefault().Named("windowagg"),
		initializer:            initializer,
		aggregator:             aggregator,
		windowSizeMs:           int64(cfg.WindowSize / time.Millisecond),
		allowedLatenessMs:      int64(cfg.AllowedLateness / time.Millisecond),
		queryableMs:            int64(cfg.QueryableAfterClose / time.Millisecond),
		nonExpiredWindowStarts: make(map[int64]bool),
	}

	if cfg.CustomWindowStart != "" {
		e, err := compileWindowStartExpr(cfg.CustomWindowStart)
		if err != nil {
			return nil, err
		}
		t.windowStart = e
	}
	if cfg.Filter != "" {
		e, err := compileFilterExpr(cfg.Filter)
		if err != nil {
			return nil, err
		}
		t.filter = e
	}

	t.timers = timerstore.NewPersistentTimerStore(timerCache, cfg.MaxTimerFiresPerWatermark, t.onEventTimer)
	wm.RegisterListener(t.handleWatermark)

	if cfg.EmitUpdatedEntriesOnCommit {
		aggStore.RegisterFlushListener(t.onAggFlush)
	}

	ctx.OnCommit(func() {
		if err := aggStore.Flush(); err != nil {
			t.log.Error("aggregate store flush: %v", err)
			t.pendingErr = err
			return
		}
		if err := timerCache.Flush(); err != nil {
			t.log.Error("timer store flush: %v", err)
			t.pendingErr = err
		}
	})

	return t, nil
}

// OnInit recovers nextTimerTime from the persisted timer store. Call once
// per task before the first OnMessage/watermark advance.
func (t *Transformer) OnInit() error {
	return t.timers.OnInit()
}

// TakePendingError returns and clears any error captured from a callback
// invoked outside OnMessage's own call stack (the watermark listener and
// the commit hook both run synchronously from within some host-driven
// call, but that call is not necessarily OnMessage itself). Per the
// single-threaded-per-task scheduling model, there is no concurrent writer
// to race against between the callback storing it and the host retrieving
// it on the next opportunity.
func (t *Transformer) TakePendingError() error {
	err := t.pendingErr
	t.pendingErr = nil
	return err
}

func (t *Transformer) handleWatermark(w int64) {
	if err := t.timers.OnWatermark(w); err != nil {
		t.pendingErr = err
	}
}

// OnMessage processes one record: the filter hook (if configured), window
// start computation, the lateness/restatement check, for on-time records
// timer registration and the state-store merge, and finally the watermark
// advance from this record's event time. Lateness is judged against the
// watermark as it stood when the record arrived.
func (t *Transformer) OnMessage(eventTime int64, key string, value interface{}) error {
	if t.filter != nil {
		keep, err := t.filter.eval(eventTime, key, value)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
	}

	ws := eventTime - mod(eventTime, t.windowSizeMs)
	if t.windowStart != nil {
		v, err := t.windowStart.eval(eventTime, key, value)
		if err != nil {
			return err
		}
		ws = v
	}
	wk := types.TimeWindowed{Start: ws, Size: t.windowSizeMs, Key: key}

	watermarkNow := t.wm.Current()
	if ws+t.windowSizeMs+t.allowedLatenessMs <= watermarkNow {
		acc := t.aggregator(key, value, t.initializer())
		t.metrics.IncRestatements()
		t.ctx.Forward(wk, types.WindowedValue{State: types.Restatement, Value: acc}, watermarkNow)
		t.wm.OnRecord(eventTime)
		return t.TakePendingError()
	}

	if err := t.addWindowTimersIfNew(ws); err != nil {
		return err
	}

	current, err := t.getAgg(wk)
	if err != nil {
		return err
	}
	updated := t.aggregator(key, value, current)
	if err := t.putAgg(wk, updated); err != nil {
		return err
	}
	t.wm.OnRecord(eventTime)
	return t.TakePendingError()
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// addWindowTimersIfNew registers this window start's Close/Expire timers
// the first time a record ever lands in it, per task.
func (t *Transformer) addWindowTimersIfNew(ws int64) error {
	if t.nonExpiredWindowStarts[ws] {
		return nil
	}
	t.nonExpiredWindowStarts[ws] = true

	closeTime := ws + t.windowSizeMs + t.allowedLatenessMs
	expireTime := closeTime + t.queryableMs
	wsKey := encodeInt64(ws)

	if t.cfg.EmitOnClose {
		if err := t.timers.AddTimer(closeTime, types.Close, wsKey); err != nil {
			return err
		}
	}
	if err := t.timers.AddTimer(expireTime, types.Expire, wsKey); err != nil {
		return err
	}
	return nil
}

// onEventTimer is the PersistentTimerStore's OnTimerFunc: Close emits every
// live entry for the fired window start without deleting it; Expire
// range-deletes the window's entries in one changelog-free sweep.
func (t *Transformer) onEventTimer(_ int64, metadata types.Metadata, key []byte) error {
	if len(key) < 8 {
		return fmt.Errorf("%w: event timer key too short", errs.ErrInvariantViolation)
	}
	ws := decodeInt64(key[:8])
	from, to := windowRangeBounds(ws)

	switch metadata.Kind {
	case types.MetaClose:
		it, err := t.aggStore.Range(from, to)
		if err != nil {
			return fmt.Errorf("%w: close scan: %v", errs.ErrTransientStore, err)
		}
		defer it.Close()

		w := t.wm.Current()
		for it.HasNext() {
			k, v, err := it.Next()
			if err != nil {
				return fmt.Errorf("%w: close scan: %v", errs.ErrTransientStore, err)
			}
			wk, err := DecodeWindowKey(k)
			if err != nil {
				return err
			}
			val, err := unmarshalAgg(v)
			if err != nil {
				return err
			}
			t.metrics.IncClosedWindows()
			t.ctx.Forward(wk, types.WindowedValue{State: types.WindowClosed, Value: val}, w)
		}
		return nil

	case types.MetaExpire:
		if err := t.aggStore.DeleteRangeWithoutChangelog(from, to); err != nil {
			return fmt.Errorf("%w: expire delete: %v", errs.ErrTransientStore, err)
		}
		delete(t.nonExpiredWindowStarts, ws)
		t.metrics.IncExpiredWindows()
		return nil

	default:
		return fmt.Errorf("%w: unexpected timer metadata kind %s on window timer", errs.ErrInvariantViolation, metadata.Kind)
	}
}

// onAggFlush is the aggregate store's flush listener, wired only when
// emitUpdatedEntriesOnCommit is set. v is the buffered accumulator this key
// held immediately before being written to the backing store; per spec the
// listener re-reads through Get rather than forwarding v directly — Get
// still finds this key in the cache (Flush only removes a dirty entry after
// its own backing write completes), so the re-read resolves to the same
// canonical value v names, but it goes through the store's read path
// instead of trusting the raw parameter, which is what keeps this listener
// correct if the merge-at-flush-vs-merge-at-write split ever changes.
func (t *Transformer) onAggFlush(k, v []byte) {
	wk, err := DecodeWindowKey(k)
	if err != nil {
		t.log.Error("flush listener: malformed window key: %v", err)
		return
	}
	canonical, found, err := t.aggStore.Get(k)
	if err != nil {
		t.log.Error("flush listener: re-read %s: %v", wk, err)
		return
	}
	if !found {
		t.log.Error("flush listener: %s missing from store during its own flush", wk)
		return
	}
	val, err := unmarshalAgg(canonical)
	if err != nil {
		t.log.Error("flush listener: %v", err)
		return
	}
	t.ctx.Forward(wk, types.WindowedValue{State: types.WindowOpen, Value: val}, t.wm.Current())
}

func (t *Transformer) getAgg(wk types.TimeWindowed) (interface{}, error) {
	v, found, err := t.aggStore.Get(EncodeWindowKey(wk))
	if err != nil {
		return nil, fmt.Errorf("%w: get aggregate: %v", errs.ErrTransientStore, err)
	}
	if !found {
		return t.initializer(), nil
	}
	return unmarshalAgg(v)
}

func (t *Transformer) putAgg(wk types.TimeWindowed, val interface{}) error {
	b, err := marshalAgg(val)
	if err != nil {
		return err
	}
	if err := t.aggStore.Put(EncodeWindowKey(wk), b); err != nil {
		return fmt.Errorf("%w: put aggregate: %v", errs.ErrTransientStore, err)
	}
	return nil
}
