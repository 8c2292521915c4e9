// internal/workers/underwriting/risk-assessment/config.go
package riskassessment

import "time"

type Config struct {
	MinScore int
	MaxScore int
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinScore: 62,
		MaxScore: 88,
		Timeout:  30 * time.Second,
	}
}
