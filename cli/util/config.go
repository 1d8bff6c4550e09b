package util

import (
	"fmt"

	"github.com/spf13/pflag"
	"gopkg.in/ini.v1"
)

// ApplyConfig reads an INI file and uses the keys of the named section as
// values for flags not set on the command line. Keys use flag names. Keys that
// do not name a flag are an error.
func ApplyConfig(flags *pflag.FlagSet, path string, section string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	for _, key := range cfg.Section(section).Keys() {
		flag := flags.Lookup(key.Name())
		if flag == nil {
			return fmt.Errorf("unknown config key %s in %s", key.Name(), path)
		}
		if flag.Changed {
			continue
		}
		if err := flags.Set(key.Name(), key.String()); err != nil {
			return fmt.Errorf("invalid value for %s in %s: %w", key.Name(), path, err)
		}
	}
	return nil
}
