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

package timerstore

import (
	"fmt"
	"math"

	"github.com/rulego/eventwindow/errs"
	"github.com/rulego/eventwindow/kvstore"
	"github.com/rulego/eventwindow/logger"
	"github.com/rulego/eventwindow/types"
)

// OnTimerFunc is a one-shot event-time callback. It is invoked
// synchronously from inside AddTimer (inline fire) or fireTimers; an error
// it returns propagates out of the call that triggered it and is fatal to
// the task, per the UserCallbackError class.
type OnTimerFunc func(fireTime int64, metadata types.Metadata, key []byte) error

// firingState names why the last fireTimers loop stopped; fireTimers
// switches on it after the loop to decide how nextTimerTime is recomputed.
type firingState int

const (
	stateIdle firingState = iota
	stateFoundTimerAfterWatermark
	stateExceededMaxTimers
	stateExhausted
)

// PersistentTimerStore is the watermark-driven firing engine (component D).
// Exactly one instance exists per task; every method here runs on that
// task's single thread, which is what permits nextTimerTime and
// currentWatermark to be plain unsynchronized fields (see the concurrency
// model in the design notes).
type PersistentTimerStore struct {
	cache *kvstore.CachingKVStore

	nextTimerTime     int64
	currentWatermark  int64
	maxFiresPerWm      int
	onTimer           OnTimerFunc
	log               logger.Logger

	lastState firingState
}

// NewPersistentTimerStore builds a timer store over cache. maxFiresPerWm
// bounds the number of timers a single OnWatermark call will fire
// (invariant 5 in the data model). onTimer is invoked for every fired
// timer, including ones fired inline by AddTimer.
func NewPersistentTimerStore(cache *kvstore.CachingKVStore, maxFiresPerWm int, onTimer OnTimerFunc) *PersistentTimerStore {
	return &PersistentTimerStore{
		cache:         cache,
		nextTimerTime: math.MaxInt64,
		maxFiresPerWm: maxFiresPerWm,
		onTimer:       onTimer,
		log:           logger.GetDefault().Named("timerstore"),
	}
}

// OnInit resets in-memory scalars and rebuilds nextTimerTime from the
// store's contents — the recovery path after a task restart.
func (p *PersistentTimerStore) OnInit() error {
	p.nextTimerTime = math.MaxInt64
	p.currentWatermark = 0

	it, err := p.cache.All()
	if err != nil {
		return fmt.Errorf("%w: timer store init scan: %v", errs.ErrTransientStore, err)
	}
	defer it.Close()

	if it.HasNext() {
		k, _, err := it.Next()
		if err != nil {
			return fmt.Errorf("%w: timer store init scan: %v", errs.ErrTransientStore, err)
		}
		t, err := DecodeTimer(k)
		if err != nil {
			return err
		}
		p.nextTimerTime = t.Time
	}
	return nil
}

// NextTimerTime returns the current value of the nextTimerTime scalar.
func (p *PersistentTimerStore) NextTimerTime() int64 {
	return p.nextTimerTime
}

// CurrentWatermark returns the current value of the currentWatermark
// scalar.
func (p *PersistentTimerStore) CurrentWatermark() int64 {
	return p.currentWatermark
}

// AddTimer registers a one-shot callback at (time, metadata, key). If time
// is already behind the current watermark, the callback fires inline,
// synchronously, within this call — the watermark has already passed that
// time, so the timer is never persisted (persisting it would violate the
// "no record past watermark" invariant by leaving a dead entry nothing
// will ever scan past nextTimerTime to find).
func (p *PersistentTimerStore) AddTimer(time int64, metadata types.Metadata, key []byte) error {
	if time < p.currentWatermark {
		if err := p.onTimer(time, metadata, key); err != nil {
			return fmt.Errorf("%w: inline timer fire: %v", errs.ErrUserCallback, err)
		}
		return nil
	}

	timerKey, err := EncodeTimer(types.Timer{Time: time, Metadata: metadata, Key: key})
	if err != nil {
		return err
	}
	if err := p.cache.Put(timerKey, []byte{}); err != nil {
		return fmt.Errorf("%w: persist timer: %v", errs.ErrTransientStore, err)
	}
	if time < p.nextTimerTime {
		p.nextTimerTime = time
	}
	return nil
}

// OnWatermark advances the watermark, firing any due timers first. The
// watermark field is updated only after firing completes, so timer
// callbacks invoked from within this call observe the watermark as it was
// before this advance — any timer they register for a time behind the
// about-to-be-committed w correctly fires inline via AddTimer's own check.
func (p *PersistentTimerStore) OnWatermark(w int64) error {
	if w < 10000 {
		p.log.Warn("timer store observed watermark %d below bootstrap threshold; proceeding", w)
	}

	if w >= p.nextTimerTime {
		if err := p.fireTimers(w); err != nil {
			return err
		}
	}
	p.currentWatermark = w
	return nil
}

// fireTimers implements the range-scan firing loop from the design: start
// at TimeToPrefix(nextTimerTime), and fire every due timer in (time,
// metadata, key) order until either the watermark is exhausted, the
// per-watermark fire bound is hit, or the iterator runs out.
func (p *PersistentTimerStore) fireTimers(w int64) error {
	it, err := p.cache.Range(TimeToPrefix(p.nextTimerTime), nil)
	if err != nil {
		return fmt.Errorf("%w: fireTimers range scan: %v", errs.ErrTransientStore, err)
	}
	defer it.Close()

	fires := 0
	p.lastState = stateIdle

	for it.HasNext() {
		k, _, err := it.Next()
		if err != nil {
			return fmt.Errorf("%w: fireTimers scan: %v", errs.ErrTransientStore, err)
		}
		t, err := DecodeTimer(k)
		if err != nil {
			return err
		}

		if w >= t.Time {
			if err := p.onTimer(t.Time, t.Metadata, t.Key); err != nil {
				return fmt.Errorf("%w: timer fire %s@%d: %v", errs.ErrUserCallback, t.Metadata, t.Time, err)
			}
			if err := p.cache.DeleteWithoutPriorValue(k); err != nil {
				return fmt.Errorf("%w: delete fired timer: %v", errs.ErrTransientStore, err)
			}
			fires++
			if fires >= p.maxFiresPerWm {
				p.lastState = stateExceededMaxTimers
				break
			}
			continue
		}

		p.lastState = stateFoundTimerAfterWatermark
		p.nextTimerTime = t.Time
		return nil
	}

	switch p.lastState {
	case stateExceededMaxTimers:
		if it.HasNext() {
			k, _, err := it.Next()
			if err != nil {
				return fmt.Errorf("%w: fireTimers peek: %v", errs.ErrTransientStore, err)
			}
			t, err := DecodeTimer(k)
			if err != nil {
				return err
			}
			p.nextTimerTime = t.Time
		} else {
			p.nextTimerTime = math.MaxInt64
			p.lastState = stateExhausted
		}
	case stateFoundTimerAfterWatermark:
		// nextTimerTime already set above.
	default:
		p.nextTimerTime = math.MaxInt64
		p.lastState = stateExhausted
	}
	return nil
}
