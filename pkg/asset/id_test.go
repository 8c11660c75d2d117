// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDForKey(t *testing.T) {
	t.Parallel()

	a := IDForKey("images/1-aa-cat.png")
	assert.Equal(t, a, IDForKey("images/1-aa-cat.png"))
	assert.NotEqual(t, a, IDForKey("images/1-aa-dog.png"))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestNewID(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, NewID(), NewID())
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "remote", OutcomeRemote.String())
	assert.Equal(t, "local_only", OutcomeLocalOnly.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
