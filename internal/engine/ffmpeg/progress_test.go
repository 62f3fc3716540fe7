package ffmpeg

import (
	"strings"
	"testing"
	"time"
)

func TestProgressTrackerParse(t *testing.T) {
	tracker := newProgressTracker(200 * time.Second)
	tests := []struct {
		line    string
		percent int
		ok      bool
	}{
		{line: "out_time_us=0", percent: 0, ok: true},
		{line: "out_time_us=50000000", percent: 25, ok: true},
		{line: "out_time_ms=100000000", percent: 50, ok: true},
		{line: "out_time_us=250000000", percent: 99, ok: true},
		{line: "out_time_us=N/A", ok: false},
		{line: "out_time_us=-10", ok: false},
		{line: "progress=continue", ok: false},
		{line: "progress=end", percent: 100, ok: true},
		{line: "bitrate=128.0kbits/s", ok: false},
		{line: "garbage", ok: false},
	}
	for _, tt := range tests {
		percent, ok := tracker.parse(tt.line)
		if ok != tt.ok || (ok && percent != tt.percent) {
			t.Fatalf("parse(%q) = (%d, %v), want (%d, %v)", tt.line, percent, ok, tt.percent, tt.ok)
		}
	}
}

func TestProgressTrackerUnknownDurationOnlyReportsEnd(t *testing.T) {
	tracker := newProgressTracker(0)
	if _, ok := tracker.parse("out_time_us=5000000"); ok {
		t.Fatal("expected no percentage without an expected duration")
	}
	if percent, ok := tracker.parse("progress=end"); !ok || percent != 100 {
		t.Fatalf("expected end to report 100, got %d %v", percent, ok)
	}
}

func TestTailLines(t *testing.T) {
	var lines []string
	for i := range 30 {
		lines = append(lines, "line"+string(rune('a'+i%26)))
	}
	got := tailLines(strings.Join(lines, "\n")+"\n", 20)
	if n := len(strings.Split(got, "\n")); n != 20 {
		t.Fatalf("expected 20 lines, got %d", n)
	}
	if !strings.HasPrefix(got, lines[10]) {
		t.Fatalf("expected tail to start at line 10, got %q", got)
	}
	if tailLines("   ", 20) != "" {
		t.Fatal("expected empty tail for blank stderr")
	}
}
