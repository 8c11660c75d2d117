// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package env

import (
	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
	Testing    = "testing"
)

// Current returns the deployment environment from the "env" config key
// (ASSETVAULT_ENV once configuration is loaded), defaulting to Local.
func Current() string {
	if e := viper.GetString("env"); e != "" {
		return e
	}
	return Local
}

func IsLocal() bool {
	return Current() == Local
}

func IsProduction() bool {
	return Current() == Production
}

func IsTesting() bool {
	return Current() == Testing
}
