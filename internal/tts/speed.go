package tts

import (
	"fmt"
)

// Speech rate bounds of the offline engine, in words per minute.
const (
	MinRate     = 150
	MaxRate     = 250
	DefaultRate = 180
)

// ValidateRate checks a words-per-minute value against the slider range.
func ValidateRate(rate int) error {
	if rate < MinRate || rate > MaxRate {
		return fmt.Errorf("%w: got %d", ErrInvalidRate, rate)
	}
	return nil
}

// RateToPiperScale converts a words-per-minute rate to Piper's
// length-scale parameter. Piper uses inverse scaling: a faster rate means a
// smaller length-scale. DefaultRate maps to 1.0.
func RateToPiperScale(rate int) string {
	if rate <= 0 {
		rate = DefaultRate
	}
	scale := float64(DefaultRate) / float64(rate)
	return fmt.Sprintf("%.2f", scale)
}

// RateToSpeed converts a words-per-minute rate to a speed multiplier as
// used by the cloud providers (1.0 = normal).
func RateToSpeed(rate int) float64 {
	if rate <= 0 {
		return 1.0
	}
	return float64(rate) / float64(DefaultRate)
}
