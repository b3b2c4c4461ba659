package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables. Variables that are
// not set leave the current value untouched. A malformed value (for
// example an unparsable duration) panics, like a malformed flag does.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
