// Package config fills typed configuration structs from the process
// environment using `env` / `envDefault` struct tags.
//
// A .env file in the working directory is read once on first use; values
// already present in the environment take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("config.parse_failed")
	ErrNilPointer    = errors.New("config.nil_pointer")
	ErrEnvFile       = errors.New("config.env_file")
)

var dotenvOnce sync.Once

// Load parses environment variables into v.
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// a missing .env is normal outside local development
		_ = godotenv.Load()
	})
	return parse(v)
}

// LoadFile reads the given dotenv files into the environment, then parses v.
// Unlike Load, a missing file is an error.
func LoadFile[T any](v *T, files ...string) error {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return errors.Join(ErrEnvFile, err)
		}
	}
	return parse(v)
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
