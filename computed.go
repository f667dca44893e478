// computed.go: Expression-backed computed values
//
//	beta := vexilla.Bool(false)
//	premium := vexilla.Bool(false)
//	fn, err := vexilla.Expr(vexilla.BoolCodec(), "beta && !premium",
//	    vexilla.FlagsEnv(map[string]vexilla.AnyFlag{"beta": beta, "premium": premium}))
//	showBanner := vexilla.Bool(false).WithComputed(fn)
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package vexilla

import (
	"strings"

	"github.com/agilira/go-errors"
	exprlang "github.com/expr-lang/expr"
)

// Expr compiles expression once and returns a function suitable for
// Flag.WithComputed. Each call evaluates the program against env(); a nil
// result, a runtime error or a result the codec cannot decode reports false
// so resolution continues with the providers.
func Expr[T any](codec Codec[T], expression string, env func() map[string]interface{}) (func() (T, bool), error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New(ErrCodeInvalidExpression, "expression must not be empty")
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]interface{}{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidExpression, "failed to compile expression").
			WithContext("expression", expression)
	}

	return func() (T, bool) {
		var zero T
		vars := map[string]interface{}{}
		if env != nil {
			if supplied := env(); supplied != nil {
				vars = supplied
			}
		}
		result, err := exprlang.Run(program, vars)
		if err != nil || result == nil {
			return zero, false
		}
		ev, ok := FromNative(result)
		if !ok || ev.IsAbsent() {
			return zero, false
		}
		return codec.Decode(ev)
	}, nil
}

// FlagsEnv returns an environment builder exposing the current value of
// each flag under its map key. Values are plain Go values as returned
// by ToNative.
func FlagsEnv(flags map[string]AnyFlag) func() map[string]interface{} {
	return func() map[string]interface{} {
		vars := make(map[string]interface{}, len(flags))
		for name, f := range flags {
			if isNilNode(f) {
				continue
			}
			vars[name] = ToNative(f.ResolveEncoded().Value)
		}
		return vars
	}
}
