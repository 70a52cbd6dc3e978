package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a duration string and falls back to the given default
// when the string is empty or malformed. Bad values are logged at warn so a
// misconfigured expiry shows up without stopping startup.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Err(err).Str("value", value).Dur("fallback", fallback).Msg("Invalid duration string, using fallback")
		return fallback
	}
	return parsed
}
