package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"partmix/internal/batch"
	"partmix/internal/config"
	"partmix/internal/engine/ffmpeg"
	"partmix/internal/fileutil"
	"partmix/internal/logging"
	"partmix/internal/mix"
	"partmix/internal/preflight"
	"partmix/internal/services"
	"partmix/internal/staging"
)

type mixOptions struct {
	balance     int
	parallelism int
	divisor     int
	outputDir   string
	jsonOutput  bool
}

type mixReport struct {
	BatchID   string          `json:"batch_id"`
	State     string          `json:"state"`
	PoolSize  int             `json:"pool_size"`
	ElapsedMS int64           `json:"elapsed_ms"`
	Results   []mixResultRow  `json:"results"`
	Failures  []mixFailureRow `json:"failures"`
}

type mixResultRow struct {
	Item   string `json:"item"`
	Output string `json:"output"`
	Bytes  int    `json:"bytes"`
}

type mixFailureRow struct {
	Item  string `json:"item"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func newMixCommand(ctx *commandContext) *cobra.Command {
	var opts mixOptions

	cmd := &cobra.Command{
		Use:   "mix <file>...",
		Short: "Render one practice track per input file",
		Long: `Render one practice track per input file.

Each track carries its own part on the left channel and every other part on
the right channel. The balance flag sets how loud the own part is relative to
the companions (0 silences it, 100 silences the companions).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			applyMixFlags(cmd, cfg, opts)
			return runMix(cmd, cfg, logger, args, opts.jsonOutput)
		},
	}

	cmd.Flags().IntVar(&opts.balance, "balance", mix.DefaultBalance, "Own-part share of the mix, 0-100 (overrides batch.balance)")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "Parallelism hint; 0 uses the CPU count (overrides batch.parallelism)")
	cmd.Flags().IntVar(&opts.divisor, "divisor", batch.DefaultDivisor, "Divides parallelism into engine contexts (overrides batch.divisor)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Directory for rendered tracks (overrides paths.output_dir)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the batch report as JSON")
	return cmd
}

// applyMixFlags copies explicitly set flags over the loaded configuration.
func applyMixFlags(cmd *cobra.Command, cfg *config.Config, opts mixOptions) {
	flags := cmd.Flags()
	if flags.Changed("balance") {
		cfg.Batch.Balance = opts.balance
	}
	if flags.Changed("parallelism") {
		cfg.Batch.Parallelism = opts.parallelism
	}
	if flags.Changed("divisor") {
		cfg.Batch.Divisor = opts.divisor
	}
	if flags.Changed("output") {
		cfg.Paths.OutputDir = strings.TrimSpace(opts.outputDir)
	}
}

func runMix(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, paths []string, jsonOutput bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Paths.OutputDir != "" {
		expanded, err := config.ExpandPath(cfg.Paths.OutputDir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runCtx := cmd.Context()
	if failed := preflight.Failed(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, r.Name+": "+r.Detail)
		}
		return services.Wrap(services.ErrConfiguration, "cli", "preflight", strings.Join(details, "; "), nil)
	}

	inputs, err := readInputs(paths)
	if err != nil {
		return err
	}

	if hours := cfg.Batch.StaleScratchHours; hours > 0 {
		staging.CleanStale(runCtx, cfg.Paths.ScratchDir, time.Duration(hours)*time.Hour, logger)
	}

	batchID := uuid.NewString()
	ws, err := staging.Open(cfg.Paths.ScratchDir, batchID)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String(logging.FieldBatchID, batchID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the batch directory under paths.scratch_dir manually"),
			)
		}
	}()

	eng, err := ffmpeg.New(cfg.Engine.FFmpegBinary, cfg.Engine.FFprobeBinary, ws.Dir(), ffmpeg.WithLogger(logger))
	if err != nil {
		return err
	}

	params := mix.Params{
		Balance:      cfg.Batch.Balance,
		SampleRate:   cfg.Batch.SampleRate,
		OutputPrefix: cfg.Batch.OutputPrefix,
		Quality:      cfg.Batch.Quality,
	}
	errOut := cmd.ErrOrStderr()
	view := newProgressView(errOut, inputNames(inputs), !jsonOutput && shouldColorize(errOut))
	coord := batch.NewCoordinator(batch.Options{
		Engine:      eng,
		Parallelism: cfg.Batch.Parallelism,
		Divisor:     cfg.Batch.Divisor,
		Params:      params,
		Logger:      logger,
		Observer:    view,
		BatchID:     batchID,
	})
	view.follow(coord.Snapshot)

	outcome, runErr := coord.Run(runCtx, inputs)
	view.finish()
	if runErr != nil {
		return runErr
	}

	report := mixReport{
		BatchID:   outcome.BatchID,
		State:     outcome.State.String(),
		PoolSize:  outcome.PoolSize,
		ElapsedMS: outcome.Elapsed.Milliseconds(),
		Results:   make([]mixResultRow, 0, len(outcome.Results)),
		Failures:  make([]mixFailureRow, 0, len(outcome.Failures)),
	}
	var writeErrs []error
	for _, res := range outcome.Results {
		target := filepath.Join(cfg.Paths.OutputDir, outputName(res.Name, params))
		if err := fileutil.WriteAtomic(target, res.Payload, 0o644); err != nil {
			writeErrs = append(writeErrs, fmt.Errorf("write %s: %w", target, err))
			report.Failures = append(report.Failures, mixFailureRow{Item: res.Name, Kind: "write", Error: err.Error()})
			continue
		}
		report.Results = append(report.Results, mixResultRow{Item: res.Name, Output: target, Bytes: len(res.Payload)})
	}
	for _, f := range outcome.Failures {
		report.Failures = append(report.Failures, mixFailureRow{Item: f.Name, Kind: f.Kind(), Error: f.Err.Error()})
	}

	if jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		renderMixReport(cmd, report)
	}

	if len(writeErrs) > 0 {
		return errors.Join(writeErrs...)
	}
	if n := len(outcome.Failures); n > 0 {
		return fmt.Errorf("%d of %d items failed", n, len(inputs))
	}
	return nil
}

func readInputs(paths []string) ([]batch.Input, error) {
	payloads, err := fileutil.ReadAll(paths)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "cli", "read inputs", "", err)
	}
	inputs := make([]batch.Input, len(paths))
	for i, path := range paths {
		inputs[i] = batch.Input{Name: filepath.Base(path), Payload: payloads[i]}
	}
	return inputs, nil
}

func inputNames(inputs []batch.Input) []string {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name
	}
	return names
}

func outputName(item string, params mix.Params) string {
	return mix.Job{Primary: mix.Item{Name: item}, Params: params}.OutputName()
}

func renderMixReport(cmd *cobra.Command, report mixReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s %s in %s (%d contexts)\n", report.BatchID, report.State,
		(time.Duration(report.ElapsedMS) * time.Millisecond).String(), report.PoolSize)

	if len(report.Results) > 0 {
		rows := make([][]string, 0, len(report.Results))
		for _, r := range report.Results {
			rows = append(rows, []string{r.Item, r.Output, strconv.Itoa(r.Bytes)})
		}
		fmt.Fprintln(out, renderTable([]string{"Item", "Output", "Bytes"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
	}
	if len(report.Failures) > 0 {
		rows := make([][]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			rows = append(rows, []string{f.Item, f.Kind, f.Error})
		}
		fmt.Fprintln(out, renderTable([]string{"Failed", "Kind", "Error"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
	}
}
