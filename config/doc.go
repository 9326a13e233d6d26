// Package config loads run configuration for the engine.
//
// It uses Viper to read a YAML file, overlays variables from an optional .env
// file (godotenv) and TESTKIT_-prefixed environment variables, then
// unmarshals into the caller's struct.
//
// # Usage
//
//	cfg, err := config.LoadRun("testkit")
//
// Environment variables override file values, e.g. TESTKIT_WORKER_COUNT=4 or
// TESTKIT_LOGGING_LEVEL=debug.
package config
