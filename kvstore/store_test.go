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

package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorePutGetDelete(t *testing.T) {
	m := NewMemStore()

	_, found, err := m.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Put([]byte("a"), []byte("1")))
	v, found, err := m.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, m.Put([]byte("a"), []byte("2")))
	v, _, err = m.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	require.NoError(t, m.Delete([]byte("a")))
	_, found, err = m.Get([]byte("a"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemStoreRangeIsOrdered(t *testing.T) {
	m := NewMemStore()
	for _, k := range []string{"c", "a", "e", "b", "d"} {
		require.NoError(t, m.Put([]byte(k), []byte(k)))
	}

	it, err := m.Range([]byte("b"), []byte("e"))
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.HasNext() {
		k, _, err := it.Next()
		require.NoError(t, err)
		got = append(got, string(k))
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestMemStoreRangeUnboundedTo(t *testing.T) {
	m := NewMemStore()
	require.NoError(t, m.Put([]byte("a"), []byte("1")))
	require.NoError(t, m.Put([]byte("b"), []byte("2")))

	it, err := m.Range([]byte("a"), nil)
	require.NoError(t, err)
	defer it.Close()

	count := 0
	for it.HasNext() {
		_, _, err := it.Next()
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestMemStoreDeleteRange(t *testing.T) {
	m := NewMemStore()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Put([]byte(k), []byte(k)))
	}
	require.NoError(t, m.DeleteRange([]byte("b"), []byte("d")))

	it, err := m.All()
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.HasNext() {
		k, _, err := it.Next()
		require.NoError(t, err)
		got = append(got, string(k))
	}
	assert.Equal(t, []string{"a", "d"}, got)
}

func TestSliceIteratorExhaustionAndClose(t *testing.T) {
	it := newSliceIterator([][]byte{[]byte("a")}, [][]byte{[]byte("1")})
	assert.True(t, it.HasNext())
	k, v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), k)
	assert.Equal(t, []byte("1"), v)
	assert.False(t, it.HasNext())

	_, _, err = it.Next()
	assert.Error(t, err)

	require.NoError(t, it.Close())
	assert.False(t, it.HasNext())
}
