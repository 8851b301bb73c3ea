// Package config loads typed configuration from the environment.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: dotenv
// files are read once per process (missing files are ignored), then each
// struct is populated from its `env` and `envDefault` tags.
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
package config
