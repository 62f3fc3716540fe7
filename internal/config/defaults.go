package config

const (
	defaultConfigPath        = "~/.config/partmix/config.toml"
	defaultScratchDir        = "~/.cache/partmix/scratch"
	defaultOutputDir         = "."
	defaultLogDir            = "~/.local/share/partmix/logs"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultDivisor           = 4
	defaultBalance           = 50
	defaultSampleRate        = 44100
	defaultOutputPrefix      = "processed_"
	defaultQuality           = "0"
	defaultStaleScratchHours = 24
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Batch: Batch{
			Divisor:           defaultDivisor,
			Balance:           defaultBalance,
			SampleRate:        defaultSampleRate,
			OutputPrefix:      defaultOutputPrefix,
			Quality:           defaultQuality,
			StaleScratchHours: defaultStaleScratchHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
