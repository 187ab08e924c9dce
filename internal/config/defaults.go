package config

const (
	defaultConfigPath   = "~/.config/tunesweep/config.toml"
	projectConfigName   = "tunesweep.toml"
	defaultStateDir     = "~/.local/share/tunesweep"
	defaultLogDir       = "~/.local/share/tunesweep/logs"
	defaultMaxDepth     = 10
	defaultMaxPasses    = 10
	defaultFallbackName = "Unknown Track"
	defaultThreshold    = 3
	defaultQuarantine   = "Devotional"
	defaultPlacement    = PlacementSibling
	defaultKeepRuns     = 50
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	logLevelEnvironment = "TUNESWEEP_LOG_LEVEL"
)

var (
	defaultExtensions  = []string{".mp3", ".flac", ".wav", ".aac", ".ogg", ".m4a", ".wma", ".opus", ".alac", ".aiff", ".dsd", ".dff", ".dsf"}
	defaultWebSuffixes = []string{"com", "co", "in", "net", "ws", "io", "org", "info", "me"}
)

// Placement modes for album containers.
const (
	PlacementSibling = "sibling"
	PlacementInPlace = "inplace"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Scan: Scan{
			MaxDepth:   defaultMaxDepth,
			Extensions: append([]string(nil), defaultExtensions...),
		},
		Cleanup: Cleanup{
			MaxPasses:    defaultMaxPasses,
			FallbackName: defaultFallbackName,
			WebSuffixes:  append([]string(nil), defaultWebSuffixes...),
		},
		Albums: Albums{
			Threshold:  defaultThreshold,
			Quarantine: defaultQuarantine,
			Placement:  defaultPlacement,
			PruneEmpty: true,
		},
		History: History{
			Enabled:  true,
			KeepRuns: defaultKeepRuns,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
