// internal/workers/underwriting/intake-extraction/config.go
package intakeextraction

import "time"

type Config struct {
	MinVehicles         int
	MaxVehicles         int
	TelematicsThreshold float64 // telematics is detected when a draw exceeds this
	DefaultOperation    string
	Timeout             time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinVehicles:         2,
		MaxVehicles:         8,
		TelematicsThreshold: 0.6,
		DefaultOperation:    "Local Delivery",
		Timeout:             30 * time.Second,
	}
}
