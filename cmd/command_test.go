// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w, err := logOutput("json", &buf)
	require.NoError(t, err)
	l := zerolog.New(w)
	l.Info().Str("bucket", "assets").Msg("hello")
	assert.JSONEq(t, `{"level":"info","bucket":"assets","message":"hello"}`, buf.String())

	buf.Reset()
	w, err = logOutput("console", &buf)
	require.NoError(t, err)
	assert.IsType(t, zerolog.ConsoleWriter{}, w)
	l = zerolog.New(w)
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"message"`)

	_, err = logOutput("xml", &buf)
	assert.Error(t, err)
}
