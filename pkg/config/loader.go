package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// Option tweaks a single Load call.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env key of the struct.
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// LoadDotenv reads the given dotenv files (".env" when none are given) into the
// process environment. Only the first call has any effect. Existing variables
// are never overwritten.
func LoadDotenv(files ...string) {
	dotenvOnce.Do(func() {
		// a missing .env file is normal outside local development
		_ = godotenv.Load(files...)
	})
}

// Load populates v from the environment after making sure dotenv files were read.
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}
	LoadDotenv()

	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}

	if err := env.ParseWithOptions(v, o); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure.
// Use it for configuration the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}
