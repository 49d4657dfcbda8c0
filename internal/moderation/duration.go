package moderation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	moderr "github.com/iamwavecut/groupwarden/internal/errors"
)

// MaxMuteDuration is the longest restriction a mute may request.
const MaxMuteDuration = 366 * 24 * time.Hour

var durationPattern = regexp.MustCompile(`^(\d+)([mhdw]?)$`)

var durationUnits = map[string]time.Duration{
	"":  time.Minute,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration reads an integer with an optional m, h, d or w suffix; bare numbers are minutes.
func ParseDuration(spec string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(spec)))
	if m == nil {
		return 0, moderr.New(moderr.ErrInvalidInput, "invalid duration")
	}
	unit := durationUnits[m[2]]

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n > int64(MaxMuteDuration/unit) {
		return 0, moderr.New(moderr.ErrInvalidInput, "duration exceeds 366 days")
	}
	if n == 0 {
		return 0, moderr.New(moderr.ErrInvalidInput, "duration must be positive")
	}
	return time.Duration(n) * unit, nil
}

// LooksLikeDuration reports whether s is shaped like a duration argument.
func LooksLikeDuration(s string) bool {
	return durationPattern.MatchString(strings.ToLower(s))
}
