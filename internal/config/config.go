package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AgentConfig holds the device agent configuration.
type AgentConfig struct {
	CoordinatorURL  string
	DeviceID        string
	DeviceName      string
	DeviceType      string
	RegistrationKey string
	Latitude        float64
	Longitude       float64
	MockMode        bool
	MockScenario    string
	Debug           bool

	SampleInterval    time.Duration
	HeartbeatInterval time.Duration

	Thresholds ThresholdConfig
}

// CoordinatorConfig holds the coordinator configuration.
type CoordinatorConfig struct {
	Addr            string
	DBPath          string
	RegistrationKey string
	Debug           bool

	CorrelationWindow time.Duration
	AttackThreshold   int
	ProximityMeters   float64
	SessionStaleAfter time.Duration
}

// ThresholdConfig carries the detection limits. Each one is independently
// overridable.
type ThresholdConfig struct {
	SignalJumpDBM         int
	TowerChanges          int
	TowerChangeWindow     time.Duration
	SignalManipulationDBM int
}

// LoadAgent parses flags and environment variables for the agent.
// Flags take precedence over environment variables.
func LoadAgent() *AgentConfig {
	cfg := &AgentConfig{}

	cfg.CoordinatorURL = getEnv("CELLWATCH_COORDINATOR", "ws://localhost:8080/ws")
	cfg.DeviceID = getEnv("CELLWATCH_DEVICE_ID", hostnameOr("device"))
	cfg.DeviceName = getEnv("CELLWATCH_DEVICE_NAME", cfg.DeviceID)
	cfg.DeviceType = getEnv("CELLWATCH_DEVICE_TYPE", "sensor")
	cfg.RegistrationKey = getEnv("CELLWATCH_KEY", "")
	cfg.Latitude = getEnvFloat("CELLWATCH_LAT", 0)
	cfg.Longitude = getEnvFloat("CELLWATCH_LNG", 0)
	cfg.MockMode = getEnvBool("CELLWATCH_MOCK", false)
	cfg.SampleInterval = getEnvDuration("CELLWATCH_SAMPLE_INTERVAL", 5*time.Second)
	cfg.HeartbeatInterval = getEnvDuration("CELLWATCH_HEARTBEAT_INTERVAL", 30*time.Second)
	cfg.Thresholds = loadThresholds()

	flag.StringVar(&cfg.CoordinatorURL, "coordinator", cfg.CoordinatorURL, "Coordinator WebSocket URL")
	flag.StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "Unique device identifier")
	flag.StringVar(&cfg.DeviceName, "device-name", cfg.DeviceName, "Human readable device name")
	flag.StringVar(&cfg.DeviceType, "device-type", cfg.DeviceType, "Device type reported on registration")
	flag.StringVar(&cfg.RegistrationKey, "key", cfg.RegistrationKey, "Registration key")
	flag.Float64Var(&cfg.Latitude, "lat", cfg.Latitude, "Static Latitude")
	flag.Float64Var(&cfg.Longitude, "lng", cfg.Longitude, "Static Longitude")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run with the simulated radio source")
	flag.StringVar(&cfg.MockScenario, "mock-scenario", "normal", "Simulation scenario (normal, imsi-catcher, downgrade)")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.DurationVar(&cfg.SampleInterval, "interval", cfg.SampleInterval, "Sampling interval")

	flag.Parse()

	return cfg
}

// LoadCoordinator parses flags and environment variables for the coordinator.
func LoadCoordinator() *CoordinatorConfig {
	cfg := &CoordinatorConfig{}

	cfg.Addr = getEnv("CELLWATCH_ADDR", ":8080")
	cfg.DBPath = getEnv("CELLWATCH_DB", getDefaultDBPath())
	cfg.RegistrationKey = getEnv("CELLWATCH_KEY", "")
	cfg.CorrelationWindow = getEnvDuration("CELLWATCH_CORRELATION_WINDOW", 5*time.Minute)
	cfg.AttackThreshold = getEnvInt("CELLWATCH_ATTACK_THRESHOLD", 3)
	cfg.ProximityMeters = getEnvFloat("CELLWATCH_PROXIMITY_METERS", 500)
	cfg.SessionStaleAfter = getEnvDuration("CELLWATCH_SESSION_STALE", 90*time.Second)

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	flag.StringVar(&cfg.RegistrationKey, "key", cfg.RegistrationKey, "Registration key accepted from devices")
	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.DurationVar(&cfg.CorrelationWindow, "correlation-window", cfg.CorrelationWindow, "Correlation sliding window")
	flag.IntVar(&cfg.AttackThreshold, "attack-threshold", cfg.AttackThreshold, "Distinct devices required for a coordinated attack alert")
	flag.Float64Var(&cfg.ProximityMeters, "proximity", cfg.ProximityMeters, "Location proximity bound in meters")

	flag.Parse()

	return cfg
}

func loadThresholds() ThresholdConfig {
	return ThresholdConfig{
		SignalJumpDBM:         getEnvInt("CELLWATCH_SIGNAL_JUMP", 20),
		TowerChanges:          getEnvInt("CELLWATCH_TOWER_CHANGES", 5),
		TowerChangeWindow:     getEnvDuration("CELLWATCH_TOWER_WINDOW", time.Hour),
		SignalManipulationDBM: getEnvInt("CELLWATCH_SIGNAL_MANIPULATION", 30),
	}
}

func hostnameOr(fallback string) string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "cellwatch.db"
	}

	dir := filepath.Join(home, ".cellwatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .cellwatch directory, using current dir: %v", err)
		return "cellwatch.db"
	}

	return filepath.Join(dir, "cellwatch.db")
}
