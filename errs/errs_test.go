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

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{ErrTransientStore, ErrUserCallback, ErrInvariantViolation, ErrAsyncWork, ErrFlushTimeout}
	for i := range all {
		for j := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(all[i], all[j]), "sentinel %d should not match sentinel %d", i, j)
		}
	}
}

func TestWrappedErrorMatchesIs(t *testing.T) {
	wrapped := fmt.Errorf("%w: underlying cause", ErrTransientStore)
	assert.True(t, errors.Is(wrapped, ErrTransientStore))
	assert.False(t, errors.Is(wrapped, ErrUserCallback))
}
