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

// Package windowagg implements the tumbling-window aggregation transformer
// (component F): window-start computation, lateness/restatement handling,
// close/expire timer semantics, and the commit-time open-snapshot hook.
package windowagg

import (
	"encoding/binary"
	"fmt"

	"github.com/rulego/eventwindow/errs"
	"github.com/rulego/eventwindow/types"
)

const signBit = uint64(1) << 63

func encodeInt64(v int64) []byte {
	u := uint64(v) ^ signBit
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

func decodeInt64(b []byte) int64 {
	u := binary.BigEndian.Uint64(b)
	return int64(u ^ signBit)
}

// EncodeWindowKey serializes a TimeWindowed identity as
// windowStartBE(8) || sizeBE(8) || key, matching the persisted state
// layout in the design notes. The startMs-major prefix is load-bearing:
// onEventTimer's range scan depends on every entry for a given window
// start sorting contiguously regardless of size or key.
func EncodeWindowKey(wk types.TimeWindowed) []byte {
	out := make([]byte, 0, 16+len(wk.Key))
	out = append(out, encodeInt64(wk.Start)...)
	out = append(out, encodeInt64(wk.Size)...)
	out = append(out, []byte(wk.Key)...)
	return out
}

// DecodeWindowKey is the inverse of EncodeWindowKey.
func DecodeWindowKey(b []byte) (types.TimeWindowed, error) {
	if len(b) < 16 {
		return types.TimeWindowed{}, fmt.Errorf("%w: window key too short: %d bytes", errs.ErrInvariantViolation, len(b))
	}
	start := decodeInt64(b[:8])
	size := decodeInt64(b[8:16])
	key := string(b[16:])
	return types.TimeWindowed{Start: start, Size: size, Key: key}, nil
}

// windowStartPrefix returns the encoded prefix shared by every key whose
// window start equals ws, used as the lower bound of a range scan.
func windowStartPrefix(ws int64) []byte {
	return encodeInt64(ws)
}

// windowRangeBounds returns the [from, to) byte bounds that cover exactly
// the entries whose window start equals ws: every such key sorts between
// windowStartPrefix(ws) and windowStartPrefix(ws+1), since the window-start
// field is the 8-byte big-endian major component of the key.
func windowRangeBounds(ws int64) (from, to []byte) {
	return windowStartPrefix(ws), windowStartPrefix(ws + 1)
}
