// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ConfigurationFileDirectory string
)

// LoadConfiguration merges <configFileName>.{yaml,toml,json} from the usual
// search path into viper and enables env overrides (bucket.name -> BUCKET_NAME).
// It returns false when no file was found.
func LoadConfiguration(configFileName string, required bool) bool {
	viper.SetConfigName(configFileName)
	viper.AddConfigPath(ResolvePath(ConfigurationFileDirectory))
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.assetvault")
	viper.AddConfigPath("/usr/local/etc/assetvault/")
	viper.AddConfigPath("/etc/assetvault/")
	viper.SetEnvPrefix("assetvault")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if required {
				log.Fatal().Msgf("Config file not found: %s", configFileName)
			}
			log.Debug().Msgf("Config file not found: %s", configFileName)
			return false
		}

		if required {
			log.Fatal().Err(err).Msgf("Failed to load required config file: %s", configFileName)
		}
		log.Warn().Err(err).Msgf("Failed to load config file: %s", configFileName)
		return false
	}
	log.Debug().Msgf("Loaded config file: %s", viper.ConfigFileUsed())

	return true
}
