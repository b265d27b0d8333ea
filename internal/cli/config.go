package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/temppivot/pkg/errors"
	"github.com/matzehuels/temppivot/pkg/pivot"
)

// fileConfig is the content of the config file:
//
//	epsilon = 1e-5
//	learn_pivot_edits = true
//	master_group_name = "master_group"
//	container_name = "TempPivotManager"
//	cache = true
//
// Missing keys keep their defaults.
type fileConfig struct {
	pivot.Config

	// Cache enables the learned-offset cache. --no-cache overrides it per run.
	Cache bool `toml:"cache"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{Config: pivot.DefaultConfig(), Cache: true}
}

// readConfig decodes the config file at path over the defaults. A missing
// file yields the defaults unless required is set.
func readConfig(path string, required bool) (fileConfig, error) {
	cfg := defaultFileConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) && !required {
		return defaultFileConfig(), nil
	}
	if os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig reads --config, or the default config file when the flag is
// not set.
func (c *CLI) loadConfig() error {
	path, required := c.configPath, true
	if path == "" {
		p, err := configFile()
		if err != nil {
			return nil
		}
		path, required = p, false
	}
	cfg, err := readConfig(path, required)
	if err != nil {
		return err
	}
	c.config = cfg
	c.Logger.Debug("loaded config", "path", path, "epsilon", cfg.Epsilon, "learn_pivot_edits", cfg.LearnPivotEdits, "cache", cfg.Cache)
	return nil
}
