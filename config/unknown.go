package config

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teranos/reductionist/errors"
)

// UnknownKeys returns the dotted keys in a TOML file that do not map to any Config field.
// Viper silently ignores such keys, so a typo like "compile.worker" would otherwise go unnoticed.
func UnknownKeys(path string) ([]string, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	var keys []string
	for _, key := range md.Undecoded() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)
	return keys, nil
}
