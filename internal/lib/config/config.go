// Package config loads process configuration from the environment.
//
// A .env file in the working directory is loaded once, if present; real
// environment variables always win over it. Struct fields are bound with
// `env` and `envDefault` tags.
package config

import (
	"errors"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when a nil pointer is provided to Load
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)

var defaultEnvLoaded sync.Once

// App is the configuration of the ttlcache command.
type App struct {
	DefaultTTL time.Duration `env:"TTLCACHE_DEFAULT_TTL" envDefault:"1h"`
	LogLevel   string        `env:"TTLCACHE_LOG_LEVEL" envDefault:"info"`
	LogFormat  string        `env:"TTLCACHE_LOG_FORMAT" envDefault:"text"`
	Addr       string        `env:"TTLCACHE_ADDR" envDefault:":8080"`
}

// Load parses environment variables into v.
//
// Example:
//
//	var cfg config.App
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// Ignore errors - the .env file might not exist and that's ok
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
