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

// Command eventwindow-demo wires a Transformer over in-memory stores and
// drives it through a basic aggregation / restatement / expiration
// sequence, printing every forwarded result.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rulego/eventwindow/kvstore"
	"github.com/rulego/eventwindow/logger"
	"github.com/rulego/eventwindow/runtime"
	"github.com/rulego/eventwindow/types"
	"github.com/rulego/eventwindow/watermark"
	"github.com/rulego/eventwindow/windowagg"
)

// printingContext is a minimal runtime.ProcessorContext: it prints every
// forwarded record and lets the demo trigger commit callbacks by hand
// instead of on a real scheduler.
type printingContext struct {
	commitCallbacks []func()
}

func (c *printingContext) Forward(key, value interface{}, timestamp int64) {
	wv := value.(types.WindowedValue)
	fmt.Printf("forward @%-6d %-22v state=%-11s value=%v\n", timestamp, key, wv.State, wv.Value)
}

func (c *printingContext) SchedulePunctuation(interval int64, kind runtime.PunctuationType, callback func(timestamp int64)) func() {
	return func() {}
}

func (c *printingContext) OnCommit(callback func()) {
	c.commitCallbacks = append(c.commitCallbacks, callback)
}

func (c *printingContext) commit() {
	for _, cb := range c.commitCallbacks {
		cb()
	}
}

func main() {
	logger.SetDefault(logger.NewLogger(logger.INFO, os.Stdout))

	cfg := types.DefaultConfig()
	cfg.WindowSize = 60 * time.Second
	cfg.AllowedLateness = 5 * time.Second
	cfg.QueryableAfterClose = 10 * time.Second
	cfg.EmitOnClose = true
	cfg.EmitUpdatedEntriesOnCommit = true

	aggStore := kvstore.NewCachingKVStore(kvstore.NewMemStore())
	timerCache := kvstore.NewCachingKVStore(kvstore.NewMemStore())
	ctx := &printingContext{}
	wm := watermark.New(watermark.PerMessage, 0)

	initializer := func() interface{} { return float64(0) }
	aggregator := func(key string, value interface{}, acc interface{}) interface{} {
		return acc.(float64) + value.(float64)
	}

	tr, err := windowagg.New(cfg, aggStore, timerCache, ctx, wm, nil, initializer, aggregator)
	if err != nil {
		panic(err)
	}
	if err := tr.OnInit(); err != nil {
		panic(err)
	}

	fmt.Println("--- scenario 1: basic aggregation, window closes at watermark=65000 ---")
	must(tr.OnMessage(1000, "a", float64(1)))
	must(tr.OnMessage(2000, "a", float64(2)))
	advanceWatermark(wm, 65000)
	if err := tr.TakePendingError(); err != nil {
		panic(err)
	}

	fmt.Println("--- scenario 2: restatement (late past allowed lateness) ---")
	must(tr.OnMessage(3000, "a", float64(5)))

	fmt.Println("--- commit: open-window snapshot for a new window ---")
	must(tr.OnMessage(61000, "a", float64(1)))
	ctx.commit()

	fmt.Println("--- scenario 3: expiration at watermark=75000 ---")
	advanceWatermark(wm, 75000)
	if err := tr.TakePendingError(); err != nil {
		panic(err)
	}
}

func advanceWatermark(wm *watermark.Tracker, target int64) {
	wm.OnRecord(target)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
