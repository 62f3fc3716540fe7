package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// progressTracker converts ffmpeg -progress key=value lines into percentages.
type progressTracker struct {
	expected time.Duration
}

func newProgressTracker(expected time.Duration) *progressTracker {
	return &progressTracker{expected: expected}
}

// parse returns a percentage for lines that carry one. Time-based values
// stop at 99 so only progress=end reports completion.
func (t *progressTracker) parse(line string) (int, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "progress":
		if value == "end" {
			return 100, true
		}
		return 0, false
	case "out_time_us", "out_time_ms":
		// ffmpeg reports microseconds under both keys.
		if t.expected <= 0 {
			return 0, false
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		elapsed := time.Duration(us) * time.Microsecond
		percent := int(elapsed * 100 / t.expected)
		return min(max(percent, 0), 99), true
	default:
		return 0, false
	}
}
