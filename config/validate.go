package config

import "github.com/teranos/reductionist/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Compile.Verbosity < 0 || c.Compile.Verbosity > MaxVerbosity {
		return errors.Newf("compile.verbosity must be between 0 and %d, got %d", MaxVerbosity, c.Compile.Verbosity)
	}

	// Workers: 0 falls back to sequential, negative is invalid
	if c.Compile.Workers < 0 {
		return errors.Newf("compile.workers must be >= 0, got %d", c.Compile.Workers)
	}
	if c.Compile.Workers > MaxWorkers {
		return errors.Newf("compile.workers must be <= %d, got %d", MaxWorkers, c.Compile.Workers)
	}

	if c.Log.Theme != "" && c.Log.Theme != "everforest" && c.Log.Theme != "gruvbox" {
		return errors.Newf("log.theme must be everforest or gruvbox, got %q", c.Log.Theme)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	return nil
}
