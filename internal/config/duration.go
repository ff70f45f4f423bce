package config

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationRe = regexp.MustCompile(`^(\d+)\s*([smhdSMHD])$`)

// ParseDuration parses token lifetimes written as `<int><s|m|h|d>` ("15m",
// "7d").  Empty or malformed input yields fallback.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fallback
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fallback
	}
	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(n) * unit
}
