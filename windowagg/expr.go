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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/rulego/eventwindow/errs"
)

// exprEnv is the evaluation environment handed to both CustomWindowStart and
// Filter expressions: the record under evaluation, named the way a caller
// writing `time`, `key`, `value` in an expression would expect.
func exprEnv(eventTime int64, key string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"time":  eventTime,
		"key":   key,
		"value": value,
	}
}

// windowStartExpr compiles a CustomWindowStart expression. The result is
// coerced through spf13/cast to an int64 rather than constrained with
// expr.AsInt64, so expressions may freely mix int/float arithmetic and
// still yield a usable window start.
type windowStartExpr struct {
	program *vm.Program
}

func compileWindowStartExpr(expression string) (*windowStartExpr, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: compiling customWindowStart: %v", errs.ErrInvariantViolation, err)
	}
	return &windowStartExpr{program: program}, nil
}

func (e *windowStartExpr) eval(eventTime int64, key string, value interface{}) (int64, error) {
	out, err := expr.Run(e.program, exprEnv(eventTime, key, value))
	if err != nil {
		return 0, fmt.Errorf("%w: customWindowStart: %v", errs.ErrUserCallback, err)
	}
	n, err := cast.ToInt64E(out)
	if err != nil {
		return 0, fmt.Errorf("%w: customWindowStart returned non-numeric result: %v", errs.ErrUserCallback, err)
	}
	return n, nil
}

// filterExpr compiles a Filter expression, forced to a boolean result.
type filterExpr struct {
	program *vm.Program
}

func compileFilterExpr(expression string) (*filterExpr, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: compiling filter: %v", errs.ErrInvariantViolation, err)
	}
	return &filterExpr{program: program}, nil
}

func (e *filterExpr) eval(eventTime int64, key string, value interface{}) (bool, error) {
	out, err := expr.Run(e.program, exprEnv(eventTime, key, value))
	if err != nil {
		return false, fmt.Errorf("%w: filter: %v", errs.ErrUserCallback, err)
	}
	return out.(bool), nil
}
