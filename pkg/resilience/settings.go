package resilience

import "time"

// Settings tunes a single named breaker.
type Settings struct {
	Name                 string
	WindowSize           int
	FailureRateThreshold float64
	OpenTimeout          time.Duration
	HalfOpenMaxCalls     int
}

// BuildSettings produces a Settings struct from primitive tuning knobs.
func BuildSettings(name string, windowSize int, failureRate float64, openTimeoutSeconds, halfOpenMaxCalls int) Settings {
	if windowSize <= 0 {
		windowSize = 10
	}

	if failureRate <= 0 || failureRate > 100 {
		failureRate = 50
	}

	openTimeout := time.Duration(openTimeoutSeconds) * time.Second
	if openTimeout <= 0 {
		openTimeout = 10 * time.Second
	}

	if halfOpenMaxCalls <= 0 {
		halfOpenMaxCalls = 3
	}

	return Settings{
		Name:                 name,
		WindowSize:           windowSize,
		FailureRateThreshold: failureRate,
		OpenTimeout:          openTimeout,
		HalfOpenMaxCalls:     halfOpenMaxCalls,
	}
}
