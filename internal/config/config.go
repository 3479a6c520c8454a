package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port       string
	BFFBaseURL string
	DBPath     string

	SubmitTimeout   time.Duration
	LocationTimeout time.Duration
	Cooldown        time.Duration
	ProbeInterval   time.Duration

	MaxRetries        int
	TokenHistoryLimit int

	// Optional fixed coordinates for the static location provider. Both must
	// be set for a location to be reported.
	DeviceLatitude  *float64
	DeviceLongitude *float64
}

func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "8087"),
		BFFBaseURL: getenv("BFF_BASE_URL", "https://aki-bff-h9cjg7hpfzc9fggh.eastus2-01.azurewebsites.net"),
		DBPath:     getenv("DB_PATH", "aki_agent.db"),

		SubmitTimeout:   getenvSeconds("SUBMIT_TIMEOUT_SECONDS", 10),
		LocationTimeout: getenvSeconds("LOCATION_TIMEOUT_SECONDS", 10),
		Cooldown:        getenvSeconds("COOLDOWN_SECONDS", 5),
		ProbeInterval:   getenvSeconds("PROBE_INTERVAL_SECONDS", 15),

		MaxRetries:        getenvInt("MAX_RETRIES", 3),
		TokenHistoryLimit: getenvInt("TOKEN_HISTORY_LIMIT", 500),

		DeviceLatitude:  getenvFloat("DEVICE_LATITUDE"),
		DeviceLongitude: getenvFloat("DEVICE_LONGITUDE"),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getenvInt(key, fallback)) * time.Second
}

func getenvFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
