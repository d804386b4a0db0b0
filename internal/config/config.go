package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the matching engine.
type Config struct {
	Port              int
	LogLevel          string
	LogFile           string
	InstrumentsFile   string
	ProcessInterval   time.Duration
	RematchDependents bool
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// Load reads configuration from an optional .env file and environment
// variables, applies defaults, and validates values. Variables already set
// in the environment take precedence over the .env file. It returns an
// error for any invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load(getStr("ENV_FILE", ".env"))

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	processInterval, err := getDuration("PROCESS_INTERVAL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESS_INTERVAL: %w", err)
	}
	if processInterval < 0 {
		return nil, fmt.Errorf("invalid PROCESS_INTERVAL: %v must not be negative", processInterval)
	}

	rematchDependents, err := getBool("REMATCH_DEPENDENTS", true)
	if err != nil {
		return nil, fmt.Errorf("invalid REMATCH_DEPENDENTS: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		LogFile:           os.Getenv("LOG_FILE"),
		InstrumentsFile:   instrumentsFile(),
		ProcessInterval:   processInterval,
		RematchDependents: rematchDependents,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ShutdownTimeout:   shutdownTimeout,
	}, nil
}

// instrumentsFile distinguishes an unset INSTRUMENTS_FILE (default path)
// from one explicitly set to empty (no bootstrap file).
func instrumentsFile() string {
	v, ok := os.LookupEnv("INSTRUMENTS_FILE")
	if !ok {
		return "instruments.yaml"
	}
	return v
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
