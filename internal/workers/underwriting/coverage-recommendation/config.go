// internal/workers/underwriting/coverage-recommendation/config.go
package coveragerecommendation

import "time"

type Config struct {
	PreferredBand string // band that receives the richer limits
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PreferredBand: "A",
		Timeout:       30 * time.Second,
	}
}
