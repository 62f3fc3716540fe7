package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"partmix/internal/config"
	"partmix/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config. The
// ffmpeg entry carries its version line, and the filter check only runs when
// ffmpeg itself resolved.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Engine.FFmpegBinary,
			Description: "Required to render practice tracks",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Engine.FFprobeBinary,
			Description: "Measures inputs for progress reporting",
			Optional:    true,
		},
	}
	statuses := deps.CheckBinaries(requirements)
	if statuses[0].Available {
		statuses[0].Detail = deps.Version(ctx, statuses[0].Command)
		statuses = append(statuses, deps.CheckFilters(ctx, cfg.Engine.FFmpegBinary))
	}
	return statuses
}
