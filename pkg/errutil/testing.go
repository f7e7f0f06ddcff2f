// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FieldKey is the oops context key naming the input or setting an error
// refers to.
const FieldKey = "field"

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, requireOops(t, err).Code())
}

// AssertErrorContext asserts that err carries key=value in its oops
// context, at any depth of the wrap chain.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}

// AssertFieldError asserts that err has the given code and names field.
// Validation errors in account and config both report the offending
// field this way.
func AssertFieldError(t *testing.T, err error, code, field string) {
	t.Helper()
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code())
	assert.Equal(t, field, oopsErr.Context()[FieldKey], "field")
}
