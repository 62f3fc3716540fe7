package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RequiredFilters lists the ffmpeg filters practice-track jobs use.
var RequiredFilters = []string{"aformat", "pan", "volume", "amix", "anullsrc", "amerge"}

// Version returns the first line of `binary -version`, or "" when it cannot run.
func Version(ctx context.Context, binary string) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}

// CheckFilters reports whether the ffmpeg binary provides every filter in
// RequiredFilters.
func CheckFilters(ctx context.Context, binary string) Status {
	status := Status{
		Name:        "FFmpeg filters",
		Command:     strings.TrimSpace(binary),
		Description: "Audio filters used to build practice tracks",
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, status.Command, "-hide_banner", "-filters").Output() //nolint:gosec
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	missing := missingFilters(string(out), RequiredFilters)
	if len(missing) > 0 {
		status.Detail = "missing " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// missingFilters scans `ffmpeg -filters` output, whose rows look like
// " ... amix              N->A       Audio mixing.", for the wanted names.
func missingFilters(listing string, wanted []string) []string {
	found := make(map[string]bool, len(wanted))
	scanner := bufio.NewScanner(strings.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		found[fields[1]] = true
	}
	var missing []string
	for _, name := range wanted {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
