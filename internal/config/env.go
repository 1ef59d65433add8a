package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings that may come from the environment. Flags and profile
// values take precedence over these.
type Env struct {
	DataDir         string `env:"HQ_DATA_DIR"`
	SteamUsername   string `env:"HQ_STEAM_USERNAME"`
	DepotDownloader string `env:"HQ_DEPOTDOWNLOADER"`
	CacheDir        string `env:"HQ_CACHE_DIR"`
}

// ParseEnv loads Env from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
