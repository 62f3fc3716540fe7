package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"partmix/internal/deps"
	"partmix/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external binaries and working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			statuses := preflight.CheckSystemDeps(runCtx, cfg)
			results := preflight.RunAll(runCtx, cfg)

			out := cmd.OutOrStdout()
			for _, line := range doctorLines(ctx.configPath, statuses, results, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}

			if problems := doctorProblems(statuses, results); problems > 0 {
				return errors.New(pluralize(problems, "problem", "problems") + " found")
			}
			return nil
		},
	}
}

func doctorLines(configPath string, statuses []deps.Status, results []preflight.Result, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Configuration", colorize)...)
	lines = append(lines, renderStatusLine("Config file", statusInfo, configPath, colorize))
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, status := range statuses {
		lines = append(lines, renderStatusLine(status.Name, dependencyKind(status), dependencyMessage(status), colorize))
	}
	lines = append(lines, "")

	lines = append(lines, renderSectionHeader("Directories", colorize)...)
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}

func dependencyKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyMessage(status deps.Status) string {
	if status.Available {
		switch {
		case status.Detail != "" && status.Path != "":
			return status.Detail + " (" + status.Path + ")"
		case status.Detail != "":
			return status.Detail
		case status.Path != "":
			return status.Path
		}
		return status.Command
	}
	msg := status.Detail
	if msg == "" {
		msg = "unavailable"
	}
	if status.Optional {
		msg += " (optional: " + status.Description + ")"
	}
	return msg
}

func doctorProblems(statuses []deps.Status, results []preflight.Result) int {
	count := len(preflight.Failed(results))
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			count++
		}
	}
	return count
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
