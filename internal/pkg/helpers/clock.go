package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Clock returns the current time; services take one so tests can pin the date
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// ParseDuration parses s, or returns fallback (with a warning) when s is malformed
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn().Err(err).Str("value", s).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	}
	return d
}
