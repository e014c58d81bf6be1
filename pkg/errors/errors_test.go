// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := cairnerr.New(
		cairnerr.CodeStoreInvalidInput,
		"plan: name is required",
		cairnerr.FieldPlanID("plan-123"),
		cairnerr.FieldOp("plan.add"),
	)

	require.Error(t, err)
	assert.Equal(t, cairnerr.CodeStoreInvalidInput, cairnerr.CodeOf(err))
	assert.True(t, cairnerr.HasCode(err, cairnerr.CodeStoreInvalidInput))

	fields := cairnerr.FieldsOf(err)
	assert.Equal(t, "plan-123", fields["plan_id"])
	assert.Equal(t, "plan.add", fields["op"])
}

func TestNewWithNoFields(t *testing.T) {
	err := cairnerr.New(cairnerr.CodeStoreQueryFailure, "connection lost")
	require.Error(t, err)
	assert.Equal(t, cairnerr.CodeStoreQueryFailure, cairnerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection lost")
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := cairnerr.Errorf(cairnerr.CodeStoreConnectFailure, "connecting to %s: attempt %d", "localhost", 30)
	require.Error(t, err)
	assert.Equal(t, cairnerr.CodeStoreConnectFailure, cairnerr.CodeOf(err))
	assert.Contains(t, err.Error(), "connecting to localhost: attempt 30")
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := cairnerr.Errorf(cairnerr.CodeStoreQueryFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, cairnerr.CodeStoreQueryFailure, cairnerr.CodeOf(err))
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("record missing")
	err := cairnerr.Wrap(
		root,
		cairnerr.CodeStoreEntityNotFound,
		"loading task",
		cairnerr.FieldTaskID("task-42"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, cairnerr.CodeStoreEntityNotFound, cairnerr.CodeOf(err))
	assert.True(t, cairnerr.IsNotFound(err))
	assert.Equal(t, "task-42", cairnerr.FieldsOf(err)["task_id"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, cairnerr.Wrap(nil, cairnerr.CodeInternalFailure, "ignored"))
}

func TestWrapfNilReturnsNil(t *testing.T) {
	assert.NoError(t, cairnerr.Wrapf(nil, cairnerr.CodeInternalFailure, "ignored %s", "arg"))
}

func TestWrapfFormatsAndPreservesChain(t *testing.T) {
	root := stderrors.New("timeout")
	err := cairnerr.Wrapf(root, cairnerr.CodeStoreTransactionFailure, "committing %s %s", "plan", "p-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, cairnerr.CodeStoreTransactionFailure, cairnerr.CodeOf(err))
	assert.Contains(t, err.Error(), "committing plan p-1")
}

// ---------------------------------------------------------------------------
// With
// ---------------------------------------------------------------------------

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := cairnerr.New(cairnerr.CodeStoreDependencyCycle, "would create a cycle")
	withCtx := cairnerr.With(base, cairnerr.FieldTaskID("t-1"))

	require.Error(t, withCtx)
	assert.Equal(t, cairnerr.CodeStoreDependencyCycle, cairnerr.CodeOf(withCtx))
	assert.Equal(t, "t-1", cairnerr.FieldsOf(withCtx)["task_id"])
}

func TestWithNilReturnsNil(t *testing.T) {
	assert.NoError(t, cairnerr.With(nil, cairnerr.FieldZoneID("x")))
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	plain := stderrors.New("something broke")
	enriched := cairnerr.With(plain, cairnerr.FieldMemoryID("m-1"))

	require.Error(t, enriched)
	assert.Equal(t, cairnerr.CodeInternalFailure, cairnerr.CodeOf(enriched))
	assert.Equal(t, "m-1", cairnerr.FieldsOf(enriched)["memory_id"])
}

// ---------------------------------------------------------------------------
// HasCode / CodeOf / FieldsOf
// ---------------------------------------------------------------------------

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code cairnerr.Code
		want bool
	}{
		{
			name: "matching code",
			err:  cairnerr.New(cairnerr.CodeStoreEntityNotFound, "gone"),
			code: cairnerr.CodeStoreEntityNotFound,
			want: true,
		},
		{
			name: "non-matching code",
			err:  cairnerr.New(cairnerr.CodeStoreEntityNotFound, "gone"),
			code: cairnerr.CodeStoreQueryFailure,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			code: cairnerr.CodeStoreEntityNotFound,
			want: false,
		},
		{
			name: "plain stdlib error has no code",
			err:  stderrors.New("plain"),
			code: cairnerr.CodeInternalFailure,
			want: false,
		},
		{
			name: "wrapped coded error returns innermost code",
			err: cairnerr.Wrap(
				cairnerr.New(cairnerr.CodeStoreQueryFailure, "inner"),
				cairnerr.CodeStoreTransactionFailure, "outer",
			),
			code: cairnerr.CodeStoreQueryFailure,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cairnerr.HasCode(tt.err, tt.code))
		})
	}
}

func TestCodeOfNil(t *testing.T) {
	assert.Equal(t, cairnerr.Code(""), cairnerr.CodeOf(nil))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, cairnerr.Code(""), cairnerr.CodeOf(stderrors.New("plain")))
}

func TestFieldsOfNil(t *testing.T) {
	assert.Nil(t, cairnerr.FieldsOf(nil))
}

func TestTypedFieldHelpers(t *testing.T) {
	tests := []struct {
		name string
		attr cairnerr.Attr
		key  string
		val  string
	}{
		{"op", cairnerr.FieldOp("zone.delete"), "op", "zone.delete"},
		{"zone_id", cairnerr.FieldZoneID("z-1"), "zone_id", "z-1"},
		{"plan_id", cairnerr.FieldPlanID("p-1"), "plan_id", "p-1"},
		{"task_id", cairnerr.FieldTaskID("t-1"), "task_id", "t-1"},
		{"memory_id", cairnerr.FieldMemoryID("m-1"), "memory_id", "m-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.val, tt.attr.Value)
		})
	}
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := cairnerr.New(cairnerr.CodeStoreQueryFailure, "oops",
		cairnerr.Field("", "should-be-dropped"),
		cairnerr.FieldZoneID("kept"),
	)
	fields := cairnerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["zone_id"])
	assert.NotContains(t, fields, "")
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	mid := fmt.Errorf("mid: %w", sentinel)
	outer := cairnerr.Wrap(mid, cairnerr.CodeInternalFailure, "handler")

	assert.ErrorIs(t, outer, sentinel)
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

func TestClassificationAndExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		code  cairnerr.Code
		exit  int
		check func(error) bool
	}{
		{name: "entity not found", code: cairnerr.CodeStoreEntityNotFound, exit: 3, check: cairnerr.IsNotFound},
		{name: "position not found", code: cairnerr.CodeStoreTaskPositionNotFound, exit: 3, check: cairnerr.IsNotFound},
		{name: "conflict", code: cairnerr.CodeStoreConflict, exit: 4, check: cairnerr.IsConflict},
		{name: "invalid input", code: cairnerr.CodeStoreInvalidInput, exit: 2, check: cairnerr.IsInvalidInput},
		{name: "relationship type", code: cairnerr.CodeStoreRelationshipInvalid, exit: 2, check: cairnerr.IsInvalidInput},
		{name: "dependency cycle", code: cairnerr.CodeStoreDependencyCycle, exit: 2, check: cairnerr.IsCycle},
		{name: "task plans", code: cairnerr.CodeStoreTaskPlansInvalid, exit: 2, check: cairnerr.IsInvalidInput},
		{name: "config value", code: cairnerr.CodeConfigValidateInvalidValue, exit: 2, check: cairnerr.IsInvalidInput},
		{name: "config format", code: cairnerr.CodeConfigParseInvalidFormat, exit: 2, check: cairnerr.IsInvalidInput},
		{name: "connect", code: cairnerr.CodeStoreConnectFailure, exit: 5, check: cairnerr.IsConnectionFailure},
		{name: "query", code: cairnerr.CodeStoreQueryFailure, exit: 1, check: func(err error) bool { return !cairnerr.IsInvalidInput(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cairnerr.New(tt.code, "boom")
			assert.Equal(t, tt.exit, cairnerr.ExitCode(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestCycleIsAlsoInvalidInput(t *testing.T) {
	err := cairnerr.New(cairnerr.CodeStoreDependencyCycle, "cycle")
	assert.True(t, cairnerr.IsInvalidInput(err))
	assert.True(t, cairnerr.IsCycle(err))
}

func TestClassificationOnNilAndPlainErrors(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain")} {
		assert.False(t, cairnerr.IsNotFound(err))
		assert.False(t, cairnerr.IsConflict(err))
		assert.False(t, cairnerr.IsInvalidInput(err))
		assert.False(t, cairnerr.IsCycle(err))
		assert.False(t, cairnerr.IsConnectionFailure(err))
	}
	assert.Equal(t, 0, cairnerr.ExitCode(nil))
	assert.Equal(t, 1, cairnerr.ExitCode(stderrors.New("plain")))
}

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := cairnerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, cairnerr.CodeInternalFailure, cairnerr.CodeOf(joined))
}

func TestWrapMessageIncludesContext(t *testing.T) {
	root := stderrors.New("EOF")
	err := cairnerr.Wrap(root, cairnerr.CodeStoreQueryFailure, "reading rows")

	msg := err.Error()
	assert.Contains(t, msg, "reading rows")
	assert.Contains(t, msg, "EOF")
}
