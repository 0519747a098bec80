// Package config loads YAML configuration files with viper.
//
// A string value of the form "$env:NAME" binds its key to the NAME
// environment variable, so secrets can stay out of the file.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envConfigPrefix = "$env:"

// Load reads configFile over defaults and decodes the result into out.
func Load(configFile string, defaults map[string]interface{}, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %q: %w", configFile, err)
	}
	for _, key := range v.AllKeys() {
		env := v.GetString(key)
		if strings.HasPrefix(env, envConfigPrefix) {
			if err := v.BindEnv(key, env[len(envConfigPrefix):]); err != nil {
				return fmt.Errorf("failed to prepare config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}
	return nil
}
