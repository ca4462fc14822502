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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileWindowStartExprRejectsSyntaxError(t *testing.T) {
	_, err := compileWindowStartExpr("time +")
	assert.Error(t, err)
}

func TestWindowStartExprEvalCoercesIntResult(t *testing.T) {
	e, err := compileWindowStartExpr("time - (time % 60000)")
	require.NoError(t, err)

	got, err := e.eval(125000, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), got)
}

func TestWindowStartExprEvalRejectsNonNumericResult(t *testing.T) {
	e, err := compileWindowStartExpr(`key`)
	require.NoError(t, err)

	_, err = e.eval(1000, "not-a-number", nil)
	assert.Error(t, err)
}

func TestCompileFilterExprRejectsSyntaxError(t *testing.T) {
	_, err := compileFilterExpr("value >")
	assert.Error(t, err)
}

func TestFilterExprEvalTrueAndFalse(t *testing.T) {
	e, err := compileFilterExpr(`value > 10`)
	require.NoError(t, err)

	keep, err := e.eval(1000, "a", float64(20))
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = e.eval(1000, "a", float64(5))
	require.NoError(t, err)
	assert.False(t, keep)
}
