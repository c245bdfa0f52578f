// Package config loads Reductionist configuration from a TOML cascade with viper.
package config

// Config represents the Reductionist configuration
type Config struct {
	Compile CompileConfig `mapstructure:"compile" toml:"compile" json:"compile" yaml:"compile"`
	Output  OutputConfig  `mapstructure:"output" toml:"output" json:"output" yaml:"output"`
	Log     LogConfig     `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
	Watch   WatchConfig   `mapstructure:"watch" toml:"watch" json:"watch" yaml:"watch"`
	Source  SourceConfig  `mapstructure:"source" toml:"source" json:"source" yaml:"source"`
}

// CompileConfig configures the compilation pipeline
type CompileConfig struct {
	Verbosity int `mapstructure:"verbosity" toml:"verbosity" json:"verbosity" yaml:"verbosity"` // 0 silent, 1 progress, 2 progress + path trace
	Workers   int `mapstructure:"workers" toml:"workers" json:"workers" yaml:"workers"`         // path enumeration workers (1 = sequential)
}

// OutputConfig configures where artifacts are written
type OutputConfig struct {
	Dir        string `mapstructure:"dir" toml:"dir" json:"dir" yaml:"dir"`                                 // default output directory
	SQLitePath string `mapstructure:"sqlite_path" toml:"sqlite_path" json:"sqlite_path" yaml:"sqlite_path"` // export target; empty = <output-dir>/reductionist.db
}

// LogConfig configures logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Theme string `mapstructure:"theme" toml:"theme" json:"theme" yaml:"theme"` // everforest, gruvbox
}

// WatchConfig configures recompile-on-change
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms" toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// SourceConfig configures grammar source fetching
type SourceConfig struct {
	CacheDir string `mapstructure:"cache_dir" toml:"cache_dir" json:"cache_dir" yaml:"cache_dir"` // where remote grammars are downloaded; empty = temp dir
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Supported verbosity range
const (
	MaxVerbosity = 2
	MaxWorkers   = 256
)
