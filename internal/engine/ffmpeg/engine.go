package ffmpeg

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"partmix/internal/engine"
	"partmix/internal/logging"
	"partmix/internal/media/ffprobe"
	"partmix/internal/mix"
	"partmix/internal/services"
)

const stderrTailLines = 20

// Executor abstracts command execution for testability. onStdout receives
// each stdout line; the captured stderr is returned.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) (string, error)
}

// Prober reports the duration of a staged input.
type Prober func(ctx context.Context, binary, path string) (time.Duration, error)

// Option configures the engine.
type Option func(*Engine)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(e *Engine) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithProber injects a custom duration prober (primarily for tests).
func WithProber(probe Prober) Option {
	return func(e *Engine) {
		if probe != nil {
			e.probe = probe
		}
	}
}

// WithLogger sets the logger used by loaded handles.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine loads ffmpeg-backed handles.
type Engine struct {
	ffmpegBinary  string
	ffprobeBinary string
	scratchRoot   string
	exec          Executor
	probe         Prober
	logger        *slog.Logger

	// durations caches probe results by payload digest so each distinct
	// input is probed once per engine rather than once per job.
	durMu     sync.Mutex
	durations map[[sha256.Size]byte]time.Duration
}

// New constructs an engine. scratchRoot must exist or be creatable.
func New(ffmpegBinary, ffprobeBinary, scratchRoot string, opts ...Option) (*Engine, error) {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ffmpeg", "configure", "ffmpeg binary required", nil)
	}
	if strings.TrimSpace(scratchRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ffmpeg", "configure", "scratch directory required", nil)
	}
	e := &Engine{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: strings.TrimSpace(ffprobeBinary),
		scratchRoot:   scratchRoot,
		exec:          commandExecutor{},
		probe:         ffprobe.ProbeDuration,
		logger:        logging.NewNop(),
		durations:     make(map[[sha256.Size]byte]time.Duration),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "ffmpeg")
	return e, nil
}

// Load resolves the ffmpeg binary and creates a private scratch directory.
func (e *Engine) Load(ctx context.Context) (engine.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	binary, err := exec.LookPath(e.ffmpegBinary)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "ffmpeg", "resolve binary", e.ffmpegBinary, err)
	}
	if err := os.MkdirAll(e.scratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	dir, err := os.MkdirTemp(e.scratchRoot, "ctx-")
	if err != nil {
		return nil, fmt.Errorf("create context scratch: %w", err)
	}

	hctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		engine:  e,
		binary:  binary,
		dir:     dir,
		ctx:     hctx,
		cancel:  cancel,
		logger:  e.logger.With(logging.String("scratch", dir)),
		digests: make(map[string][sha256.Size]byte),
	}
	h.logger.Debug("engine context loaded", logging.String(logging.FieldEventType, "engine_loaded"))
	return h, nil
}

// Handle is one ffmpeg execution context rooted at a scratch directory.
type Handle struct {
	engine *Engine
	binary string
	dir    string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	runs       sync.WaitGroup
	terminated bool
	digests    map[string][sha256.Size]byte
}

// Dir returns the handle's scratch directory.
func (h *Handle) Dir() string { return h.dir }

func (h *Handle) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid staged name %q", name)
	}
	return filepath.Join(h.dir, name), nil
}

func (h *Handle) Stage(_ context.Context, name string, data []byte) error {
	path, err := h.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write staged input: %w", err)
	}
	h.mu.Lock()
	h.digests[name] = sha256.Sum256(data)
	h.mu.Unlock()
	return nil
}

func (h *Handle) Run(ctx context.Context, job mix.Job, report func(int)) ([]byte, error) {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return nil, engine.ErrTerminated
	}
	h.runs.Add(1)
	h.mu.Unlock()
	defer h.runs.Done()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	release := context.AfterFunc(h.ctx, stop)
	defer release()

	outPath, err := h.path(job.OutputName())
	if err != nil {
		return nil, err
	}
	for _, name := range job.InputNames() {
		if _, err := h.path(name); err != nil {
			return nil, err
		}
	}

	expected := h.expectedDuration(runCtx, job)
	logger := logging.WithContext(ctx, h.logger)
	logger.Debug("ffmpeg run starting",
		logging.String(logging.FieldEventType, "ffmpeg_start"),
		logging.Duration("expected_duration", expected),
		logging.Int("companions", len(job.Companions)),
	)

	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-progress", "pipe:1", "-nostats"}
	args = append(args, mix.Args(job, func(name string) string { return filepath.Join(h.dir, name) })...)

	tracker := newProgressTracker(expected)
	stderr, err := h.engine.exec.Run(runCtx, h.binary, args, func(line string) {
		if percent, ok := tracker.parse(line); ok {
			report(percent)
		}
	})
	if err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg aborted: %w", ctxErr)
		}
		tail := tailLines(stderr, stderrTailLines)
		if tail != "" {
			logger.Debug("ffmpeg stderr", logging.String("stderr_tail", tail))
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", err)
	}
	report(100)
	return data, nil
}

// expectedDuration is the primary's duration capped by the longest companion,
// since amerge stops when its shorter input ends. Zero means unknown.
func (h *Handle) expectedDuration(ctx context.Context, job mix.Job) time.Duration {
	probe := func(name string) time.Duration {
		return h.duration(ctx, name)
	}

	primary := probe(job.Primary.Name)
	if primary <= 0 || len(job.Companions) == 0 {
		return primary
	}
	var longest time.Duration
	for _, c := range job.Companions {
		longest = max(longest, probe(c.Name))
	}
	if longest <= 0 {
		return primary
	}
	return min(primary, longest)
}

// duration probes a staged input, reusing the engine-wide result for a
// payload that was already probed. Failed probes are cached as zero.
func (h *Handle) duration(ctx context.Context, name string) time.Duration {
	h.mu.Lock()
	digest, staged := h.digests[name]
	h.mu.Unlock()
	if staged {
		h.engine.durMu.Lock()
		d, ok := h.engine.durations[digest]
		h.engine.durMu.Unlock()
		if ok {
			return d
		}
	}

	d, err := h.engine.probe(ctx, h.engine.ffprobeBinary, filepath.Join(h.dir, name))
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		h.logger.Debug("duration probe failed", logging.String("name", name), logging.Error(err))
		d = 0
	}
	if staged {
		h.engine.durMu.Lock()
		h.engine.durations[digest] = d
		h.engine.durMu.Unlock()
	}
	return d
}

func (h *Handle) Unstage(_ context.Context, name string) error {
	path, err := h.path(name)
	if err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.digests, name)
	h.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Terminate kills an in-flight ffmpeg process and removes the scratch
// directory. Later calls return nil.
func (h *Handle) Terminate() error {
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return nil
	}
	h.terminated = true
	h.mu.Unlock()

	h.cancel()
	h.runs.Wait()
	if err := os.RemoveAll(h.dir); err != nil {
		return fmt.Errorf("remove context scratch: %w", err)
	}
	h.logger.Debug("engine context terminated", logging.String(logging.FieldEventType, "engine_terminated"))
	return nil
}

func tailLines(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
