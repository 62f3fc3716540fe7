package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"partmix/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories are created so preflight checks pass.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Batch.Parallelism = 8
	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		for _, name := range names {
			writeBinary(b, name, "#!/bin/sh\nexit 0\n")
		}
		prependPath(b)
	}
}

// FakeFFmpegScript renders a practice track by concatenating every input
// after a "mixed:" marker. It fails for inputs whose content starts with
// "corrupt", mirroring ffmpeg rejecting invalid data.
const FakeFFmpegScript = `#!/bin/sh
out=""
inputs=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) inputs="$inputs $2"; shift 2 ;;
    -filter_complex|-map|-q:a|-progress|-loglevel) shift 2 ;;
    -*) shift ;;
    *) out="$1"; shift ;;
  esac
done
for f in $inputs; do
  if head -c 7 "$f" | grep -q corrupt; then
    echo "$f: Invalid data found when processing input" >&2
    exit 1
  fi
done
echo "out_time_us=0"
echo "progress=continue"
printf 'mixed:' > "$out"
for f in $inputs; do cat "$f" >> "$out"; done
echo "progress=end"
`

// WithFakeFFmpeg installs FakeFFmpegScript as ffmpeg and a failing ffprobe
// on PATH, so runs report progress only at completion.
func WithFakeFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		writeBinary(b, "ffmpeg", FakeFFmpegScript)
		writeBinary(b, "ffprobe", "#!/bin/sh\nexit 1\n")
		prependPath(b)
	}
}

func writeBinary(b *configBuilder, name, script string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		b.t.Fatalf("write stub %s: %v", name, err)
	}
}

func prependPath(b *configBuilder) {
	binDir := filepath.Join(b.baseDir, "bin")
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}
