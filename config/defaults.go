package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("compile.verbosity", 0)
	v.SetDefault("compile.workers", 1)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.sqlite_path", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")

	v.SetDefault("watch.debounce_ms", 500) // Editors write files in bursts

	v.SetDefault("source.cache_dir", "")
}

// BindEnvVars explicitly binds configuration that is commonly overridden per shell
func BindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("compile.verbosity", "REDUCTIONIST_VERBOSITY")
	_ = v.BindEnv("compile.workers", "REDUCTIONIST_WORKERS")
	_ = v.BindEnv("output.dir", "REDUCTIONIST_OUTPUT_DIR")
	_ = v.BindEnv("log.theme", "REDUCTIONIST_LOG_THEME")
}

// GetOutputDir returns the configured output directory
func (c *Config) GetOutputDir() string {
	if c.Output.Dir == "" {
		return "."
	}
	return c.Output.Dir
}

// GetWorkers returns the enumeration worker count (at least 1)
func (c *Config) GetWorkers() int {
	if c.Compile.Workers < 1 {
		return 1
	}
	return c.Compile.Workers
}

// GetDebounceMS returns the watch debounce period in milliseconds
func (c *Config) GetDebounceMS() int {
	if c.Watch.DebounceMS <= 0 {
		return 500
	}
	return c.Watch.DebounceMS
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Compile: {Verbosity: %d, Workers: %d}, Output: {Dir: %s}, Log: {JSON: %t}}",
		c.Compile.Verbosity, c.Compile.Workers, c.Output.Dir, c.Log.JSON)
}
