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

// Package logger provides leveled logging for the event-time window engine.
// The components that log (the timer store and the aggregator transformer)
// do so through a Logger tagged with their own component name via Named, so
// one task's interleaved component output can still be told apart line by
// line. The caching store and the watermark tracker do not log.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Level is a log severity.
type Level int

const (
	// DEBUG surfaces per-record/per-timer detail.
	DEBUG Level = iota
	// INFO surfaces lifecycle events: init, window close, window expire.
	INFO
	// WARN surfaces recoverable anomalies, e.g. a watermark observed below
	// the bootstrap threshold.
	WARN
	// ERROR surfaces failures propagated out of a callback or a store op.
	ERROR
	// OFF disables logging entirely.
	OFF
)

// String returns the level's name, as it appears in a log line.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case OFF:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// Logger is the contract every component in this module logs through,
// instead of fmt.Println or the standard library's log package directly.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	// SetLevel changes the minimum level this Logger emits.
	SetLevel(level Level)
	// Named returns a Logger that tags every line it emits with component,
	// starting at this Logger's current level and sharing its output; a
	// later SetLevel on either one does not affect the other. The timer
	// store and the transformer each call this once so their interleaved
	// log lines stay distinguishable, e.g.
	// logger.GetDefault().Named("timerstore").
	Named(component string) Logger
}

// defaultLogger is the Logger implementation backing both the package
// default and every Named child derived from it.
type defaultLogger struct {
	level     Level
	logger    *log.Logger
	component string
}

// NewLogger creates a Logger at level, writing lines to output.
//
// Example:
//
//	log := logger.NewLogger(logger.INFO, os.Stdout)
//	log.Info("task recovered nextTimerTime=%d", next)
func NewLogger(level Level, output io.Writer) Logger {
	return &defaultLogger{
		level:  level,
		logger: log.New(output, "", 0), // timestamp and level are formatted by log(), not the stdlib prefix
	}
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log(DEBUG, format, args...)
	}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.log(INFO, format, args...)
	}
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.log(WARN, format, args...)
	}
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.log(ERROR, format, args...)
	}
}

func (l *defaultLogger) SetLevel(level Level) {
	l.level = level
}

func (l *defaultLogger) Named(component string) Logger {
	return &defaultLogger{level: l.level, logger: l.logger, component: component}
}

// log formats and writes one line: timestamp, level, component (if Named),
// message.
func (l *defaultLogger) log(level Level, format string, args ...interface{}) {
	if l.level == OFF {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.logger.Printf("[%s] [%s] [%s] %s", timestamp, level, l.component, message)
		return
	}
	l.logger.Printf("[%s] [%s] %s", timestamp, level, message)
}

// defaultInstance is the package-level Logger every component falls back to
// via GetDefault unless the host process calls SetDefault.
var defaultInstance Logger = NewLogger(INFO, os.Stdout)

// SetDefault replaces the package-level default Logger.
func SetDefault(logger Logger) {
	defaultInstance = logger
}

// GetDefault returns the package-level default Logger.
func GetDefault() Logger {
	return defaultInstance
}
