// internal/workers/underwriting/premium-rating/config.go
package premiumrating

import "time"

type Config struct {
	MinBaseRate            int
	MaxBaseRate            int
	BandAdjustments        map[string]int // percent by risk band
	UrbanSurchargeMin      int
	UrbanSurchargeMax      int
	TelematicsCreditMin    int
	TelematicsCreditMax    int
	FleetDiscountThreshold int
	FleetDiscountPct       int
	TermDays               int
	Timeout                time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinBaseRate:            1000,
		MaxBaseRate:            1500,
		BandAdjustments:        map[string]int{"A": -10, "B": 0, "C": 12},
		UrbanSurchargeMin:      5,
		UrbanSurchargeMax:      12,
		TelematicsCreditMin:    -8,
		TelematicsCreditMax:    -3,
		FleetDiscountThreshold: 5,
		FleetDiscountPct:       -5,
		TermDays:               365,
		Timeout:                30 * time.Second,
	}
}
