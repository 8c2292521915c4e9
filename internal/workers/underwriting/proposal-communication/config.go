// internal/workers/underwriting/proposal-communication/config.go
package proposalcommunication

import "time"

type Config struct {
	DefaultOperation string
	ValidityDays     int
	Signature        string
	Timeout          time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultOperation: "Commercial Operations",
		ValidityDays:     30,
		Signature:        "Underwriting Department\nAuto UW AI Solutions",
		Timeout:          30 * time.Second,
	}
}
