// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	t.Cleanup(func() { viper.Set("env", "") })

	viper.Set("env", "")
	assert.Equal(t, Local, Current())
	assert.True(t, IsLocal())

	viper.Set("env", Production)
	assert.True(t, IsProduction())
	assert.False(t, IsLocal())

	viper.Set("env", Testing)
	assert.True(t, IsTesting())
}
