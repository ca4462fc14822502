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
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/eventwindow/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []types.Timer{
		{Time: 0, Metadata: types.Close, Key: []byte("a")},
		{Time: -500, Metadata: types.Expire, Key: []byte("b")},
		{Time: 12345, Metadata: types.User([]byte{1, 2, 3}), Key: []byte("key-with-dashes")},
		{Time: 9223372036854775807, Metadata: types.Close, Key: nil},
	}
	for _, tc := range cases {
		b, err := EncodeTimer(tc)
		require.NoError(t, err)
		got, err := DecodeTimer(b)
		require.NoError(t, err)
		assert.Equal(t, tc.Time, got.Time)
		assert.Equal(t, tc.Metadata.Kind, got.Metadata.Kind)
		assert.Equal(t, tc.Metadata.Payload, got.Metadata.Payload)
		assert.Equal(t, tc.Key, got.Key)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeTimer(types.Timer{Time: 1, Metadata: types.User(make([]byte, 256)), Key: []byte("k")})
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	_, err := DecodeTimer([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestByteOrderMatchesTimeOrder(t *testing.T) {
	times := []int64{-1000, -1, 0, 1, 1000, 1 << 40}
	var keys [][]byte
	for _, tm := range times {
		b, err := EncodeTimer(types.Timer{Time: tm, Metadata: types.Close, Key: []byte("k")})
		require.NoError(t, err)
		keys = append(keys, b)
	}

	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	assert.Equal(t, keys, sorted, "encoded keys should already be in time order")
}

func TestTimeToPrefixBoundsExactTime(t *testing.T) {
	lower, err := EncodeTimer(types.Timer{Time: 100, Metadata: types.Close, Key: []byte("a")})
	require.NoError(t, err)
	earlier, err := EncodeTimer(types.Timer{Time: 99, Metadata: types.Close, Key: []byte("z")})
	require.NoError(t, err)

	prefix := TimeToPrefix(100)
	assert.True(t, bytes.Compare(lower, prefix) >= 0)
	assert.True(t, bytes.Compare(earlier, prefix) < 0)
}
