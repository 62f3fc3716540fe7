package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"partmix/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".cache", "partmix", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	wantLogs := filepath.Join(tempHome, ".local", "share", "partmix", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Batch.Divisor != 4 {
		t.Fatalf("expected divisor 4, got %d", cfg.Batch.Divisor)
	}
	if cfg.Batch.Balance != 50 {
		t.Fatalf("expected balance 50, got %d", cfg.Batch.Balance)
	}
	if cfg.Batch.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", cfg.Batch.SampleRate)
	}
	if cfg.Batch.OutputPrefix != "processed_" {
		t.Fatalf("unexpected output prefix %q", cfg.Batch.OutputPrefix)
	}
	if cfg.Engine.FFmpegBinary != "ffmpeg" || cfg.Engine.FFprobeBinary != "ffprobe" {
		t.Fatalf("unexpected engine binaries: %+v", cfg.Engine)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
scratch_dir = "~/scratch"
output_dir = "/tmp/partmix-out"
log_dir = ""

[engine]
ffmpeg_binary = "/opt/ffmpeg/bin/ffmpeg"

[batch]
parallelism = 8
divisor = 2
balance = 30
output_prefix = "practice_"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected scratch dir %q", cfg.Paths.ScratchDir)
	}
	if cfg.Paths.OutputDir != "/tmp/partmix-out" {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Paths.LogDir != "" {
		t.Fatalf("expected empty log dir to stay empty, got %q", cfg.Paths.LogDir)
	}
	if cfg.Engine.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary %q", cfg.Engine.FFmpegBinary)
	}
	if cfg.Engine.FFprobeBinary != "ffprobe" {
		t.Fatalf("expected ffprobe default to survive partial section, got %q", cfg.Engine.FFprobeBinary)
	}
	if cfg.Batch.Parallelism != 8 || cfg.Batch.Divisor != 2 || cfg.Batch.Balance != 30 {
		t.Fatalf("unexpected batch settings: %+v", cfg.Batch)
	}
	if cfg.Batch.OutputPrefix != "practice_" {
		t.Fatalf("unexpected prefix %q", cfg.Batch.OutputPrefix)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %+v", cfg.Logging)
	}
}

func TestLoadPrefersProjectFileWhenDefaultMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)

	if err := os.WriteFile("partmix.toml", []byte("[batch]\nbalance = 70\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if filepath.Base(resolved) != "partmix.toml" {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Batch.Balance != 70 {
		t.Fatalf("expected balance 70, got %d", cfg.Batch.Balance)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[batch]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "balance too high",
			mutate:  func(c *config.Config) { c.Batch.Balance = 101 },
			wantErr: "batch.balance",
		},
		{
			name:    "balance negative",
			mutate:  func(c *config.Config) { c.Batch.Balance = -1 },
			wantErr: "batch.balance",
		},
		{
			name:    "negative parallelism",
			mutate:  func(c *config.Config) { c.Batch.Parallelism = -2 },
			wantErr: "batch.parallelism",
		},
		{
			name:    "prefix with separator",
			mutate:  func(c *config.Config) { c.Batch.OutputPrefix = "out/" },
			wantErr: "batch.output_prefix",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *config.Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadNormalizesZeroValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[batch]\ndivisor = 0\nsample_rate = 0\nquality = \" \"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Batch.Divisor != 4 {
		t.Fatalf("expected divisor fallback 4, got %d", cfg.Batch.Divisor)
	}
	if cfg.Batch.SampleRate != 44100 {
		t.Fatalf("expected sample rate fallback, got %d", cfg.Batch.SampleRate)
	}
	if cfg.Batch.Quality != "0" {
		t.Fatalf("expected quality fallback, got %q", cfg.Batch.Quality)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded map[string]any
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "engine", "batch", "logging"} {
		if _, ok := decoded[section]; !ok {
			t.Fatalf("sample missing [%s] section", section)
		}
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Batch.Divisor != config.Default().Batch.Divisor {
		t.Fatalf("sample divisor drifted from defaults: %d", cfg.Batch.Divisor)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
