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

// Package timerstore implements the typed adapter over an ordered KV store
// (component A, the timer encoding) and the watermark-driven firing engine
// built on top of it (component D, PersistentTimerStore).
package timerstore

import (
	"encoding/binary"
	"fmt"

	"github.com/rulego/eventwindow/errs"
	"github.com/rulego/eventwindow/types"
)

// signBit flips the sign bit of a big-endian int64 encoding so that two's
// complement negative numbers still sort before positive ones
// lexicographically. Times in this system are expected to be non-negative
// milliseconds-since-epoch, but the flip keeps the encoding correct for any
// signed 64-bit value.
const signBit = uint64(1) << 63

func encodeTime(t int64) []byte {
	u := uint64(t) ^ signBit
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

func decodeTime(b []byte) int64 {
	u := binary.BigEndian.Uint64(b)
	return int64(u ^ signBit)
}

// TimeToPrefix returns the shortest byte prefix that bounds every timer
// recorded at exactly time t: since the encoding is time-major and
// monotonic, scanning [TimeToPrefix(t), end) visits every timer with
// time >= t without deserializing anything earlier, in O(log N) seek time
// regardless of how many earlier timers have been tombstoned by deletion.
func TimeToPrefix(t int64) []byte {
	return encodeTime(t)
}

// EncodeTimer serializes a Timer into a byte key such that lexicographic
// byte order matches (time asc, metadata asc, key asc).
//
// Layout: timeBE(8) || metadataTag(1) || payloadLen(1) || payload || key.
// The payload-length byte means two User timers whose payloads differ in
// length sort by length before content — an
// explicit, documented deviation from pure lexicographic payload ordering,
// acceptable because Close/Expire (the only metadata kinds the window
// aggregator emits) never carry a payload and so are unaffected.
func EncodeTimer(t types.Timer) ([]byte, error) {
	if len(t.Metadata.Payload) > 255 {
		return nil, fmt.Errorf("%w: timer metadata payload exceeds 255 bytes", errs.ErrInvariantViolation)
	}
	out := make([]byte, 0, 8+1+1+len(t.Metadata.Payload)+len(t.Key))
	out = append(out, encodeTime(t.Time)...)
	out = append(out, byte(t.Metadata.Kind))
	out = append(out, byte(len(t.Metadata.Payload)))
	out = append(out, t.Metadata.Payload...)
	out = append(out, t.Key...)
	return out, nil
}

// DecodeTimer is the inverse of EncodeTimer.
func DecodeTimer(b []byte) (types.Timer, error) {
	if len(b) < 10 {
		return types.Timer{}, fmt.Errorf("%w: timer key too short: %d bytes", errs.ErrInvariantViolation, len(b))
	}
	t := decodeTime(b[:8])
	kind := types.MetadataKind(b[8])
	plen := int(b[9])
	if len(b) < 10+plen {
		return types.Timer{}, fmt.Errorf("%w: timer key truncated payload", errs.ErrInvariantViolation)
	}
	var payload []byte
	if plen > 0 {
		payload = append([]byte(nil), b[10:10+plen]...)
	}
	key := append([]byte(nil), b[10+plen:]...)
	return types.Timer{
		Time:     t,
		Metadata: types.Metadata{Kind: kind, Payload: payload},
		Key:      key,
	}, nil
}
