package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	PostgresURL string
	RedisAddr   string
	BindAddr    string

	ReservationTTL time.Duration
	SweepInterval  time.Duration

	PlatformFeePercent decimal.Decimal
}

func Load() (Config, error) {
	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		return Config{}, fmt.Errorf("POSTGRES_URL environment variable is required")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return Config{}, fmt.Errorf("REDIS_ADDR environment variable is required")
	}

	bindAddr := os.Getenv("BIND_ADDR")
	if bindAddr == "" {
		bindAddr = ":8080"
	}

	reservationTTL, err := durationEnv("RESERVATION_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}

	sweepInterval, err := durationEnv("SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	feePercent := decimal.NewFromInt(10)
	if raw := os.Getenv("PLATFORM_FEE_PERCENT"); raw != "" {
		feePercent, err = decimal.NewFromString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PLATFORM_FEE_PERCENT: %w", err)
		}
	}

	return Config{
		PostgresURL:        postgresURL,
		RedisAddr:          redisAddr,
		BindAddr:           bindAddr,
		ReservationTTL:     reservationTTL,
		SweepInterval:      sweepInterval,
		PlatformFeePercent: feePercent,
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
