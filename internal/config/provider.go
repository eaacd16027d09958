package config

import "errors"

// mapProvider is a koanf provider that loads configuration from a map.
type mapProvider map[string]any

// ReadBytes is not supported; koanf uses Read instead.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

// Read returns the configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}
