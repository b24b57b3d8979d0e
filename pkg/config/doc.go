// Package config loads environment-based configuration structs.
//
// It combines godotenv (development .env files) with caarlos0/env struct tag
// parsing. Every package in this module declares its own Config struct with
// `env` tags and loads it through config.Load at wiring time.
package config
