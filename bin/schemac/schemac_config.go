// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type config struct {
	ImportPath       []string `mapstructure:"import_path"`
	NoStandardImport bool     `mapstructure:"no_standard_import"`
	Format           string   `mapstructure:"format"`
	PluginPath       string   `mapstructure:"plugin_path"`
	Verbose          bool     `mapstructure:"verbose"`
}

var standardImportPath = []string{"/usr/local/include", "/usr/include"}

// Flags that override config keys of the same name, with '-' for '_'.
var configFlags = []string{
	"import-path",
	"no-standard-import",
	"format",
	"plugin-path",
	"verbose",
}

// loadConfig merges defaults, the config file, $SCHEMAC_* environment
// variables and flags, in increasing order of precedence. Without an
// explicit configFile, a missing ./schemac.yaml is not an error.
func loadConfig(fs afero.Fs, configFile string, flags *pflag.FlagSet) (*config, error) {
	v := viper.New()
	v.SetFs(fs)

	v.SetDefault("import_path", []string{})
	v.SetDefault("no_standard_import", false)
	v.SetDefault("format", "text")
	v.SetDefault("plugin_path", "")
	v.SetDefault("verbose", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("schemac")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCHEMAC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, name := range configFlags {
		if flag := flags.Lookup(name); flag != nil {
			key := strings.ReplaceAll(name, "-", "_")
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// importPath is the search path for root-absolute imports.
func (cfg *config) importPath() []string {
	out := append([]string{}, cfg.ImportPath...)
	if !cfg.NoStandardImport {
		out = append(out, standardImportPath...)
	}
	return out
}
