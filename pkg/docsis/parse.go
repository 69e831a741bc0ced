package docsis

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	uptimeRe = regexp.MustCompile(`(?i)(?:(\d+)\s*d(?:ays?)?(?:\(s\))?)?[\s:,]*(?:(\d+)\s*h(?:ours?|rs?)?(?:\(s\))?)?[\s:,]*(?:(\d+)\s*m(?:in(?:utes?)?)?(?:\(s\))?)?[\s:,]*(?:(\d+)\s*s(?:ec(?:onds?)?)?(?:\(s\))?)?`)
	hmsRe    = regexp.MustCompile(`(?:(\d+)\s*days?\s*)?(\d{1,3}):(\d{2}):(\d{2})`)
)

// ParseFrequency extracts a frequency in Hz from firmware text such as
// "549000000 Hz", "549.0 MHz" or a bare number (assumed Hz).
func ParseFrequency(s string) (uint64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "ghz"):
		v *= 1e9
	case strings.Contains(lower, "mhz"):
		v *= 1e6
	case strings.Contains(lower, "khz"):
		v *= 1e3
	}
	return uint64(v), true
}

// ParseDecibel extracts a dB / dBmV value ("7.5 dBmV", "38.9 dB", "-2.0").
func ParseDecibel(s string) (float64, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount extracts a non-negative integer counter, tolerating thousands
// separators.
func ParseCount(s string) (uint64, bool) {
	cleaned := strings.NewReplacer(",", "", ".", "").Replace(strings.TrimSpace(s))
	m := regexp.MustCompile(`\d+`).FindString(cleaned)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseChannelID extracts a channel identifier.
func ParseChannelID(s string) (int, bool) {
	m := regexp.MustCompile(`\d+`).FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLocked interprets the many spellings of a locked channel state.
func ParseLocked(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "locked", "lock", "true", "1", "yes", "operational", "success", "ok":
		return true
	}
	return false
}

// ParseUptime handles the two firmware uptime shapes: "12 days 03:04:05" and
// "3 days 4h:5m:6s" style verbose strings.
func ParseUptime(s string) (time.Duration, bool) {
	if m := hmsRe.FindStringSubmatch(s); m != nil {
		days, _ := strconv.Atoi(zeroEmpty(m[1]))
		h, _ := strconv.Atoi(m[2])
		mi, _ := strconv.Atoi(m[3])
		sec, _ := strconv.Atoi(m[4])
		return time.Duration(days)*24*time.Hour +
			time.Duration(h)*time.Hour +
			time.Duration(mi)*time.Minute +
			time.Duration(sec)*time.Second, true
	}
	if m := uptimeRe.FindStringSubmatch(s); m != nil {
		days, _ := strconv.Atoi(zeroEmpty(m[1]))
		h, _ := strconv.Atoi(zeroEmpty(m[2]))
		mi, _ := strconv.Atoi(zeroEmpty(m[3]))
		sec, _ := strconv.Atoi(zeroEmpty(m[4]))
		d := time.Duration(days)*24*time.Hour +
			time.Duration(h)*time.Hour +
			time.Duration(mi)*time.Minute +
			time.Duration(sec)*time.Second
		if d > 0 {
			return d, true
		}
	}
	return 0, false
}

// LastBoot derives the boot time from an uptime sample taken at now.
func LastBoot(now time.Time, uptime time.Duration) time.Time {
	return now.Add(-uptime).Truncate(time.Second)
}

func zeroEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
