package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type options struct {
	envPrefix string
}

type Option func(*options)

// WithEnvPrefix only binds environment variables starting with prefix, e.g. SHOWDOWN_HTTP_PORT.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// Load config from file into the config struct, config must be a pointer to the config struct.
// Values already set in config act as defaults, the file overrides them and environment
// variables override the file.
func Load(file string, config any, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()

	m, err := toMap(config)
	if err != nil {
		return fmt.Errorf("mapstructure: %v", err)
	}

	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config map: %v", err)
	}

	v.SetConfigFile(file)
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// ReadInConfig replaces the merged defaults, binding keeps their env variables known.
	for _, k := range v.AllKeys() {
		if err := v.BindEnv(k); err != nil {
			return fmt.Errorf("bind env %s: %v", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config from file %s: %v", file, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("unmarshal config: %v", err)
	}

	return nil
}

// toMap decodes a struct into nested maps, one level per nested struct.
func toMap(in any) (map[string]any, error) {
	m := make(map[string]any)
	if err := mapstructure.Decode(in, &m); err != nil {
		return nil, err
	}

	for k, v := range m {
		if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
			continue
		}

		sub, err := toMap(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m[k] = sub
	}

	return m, nil
}
