// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// A sample path-based in-memory file system served through pathfs.
//
// Usage:
//
//	pathfuse [flags] mount_point
package cmd

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pathfuse/pathfuse/cfg"
	"github.com/pathfuse/pathfuse/common"
	"github.com/pathfuse/pathfuse/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type mountFn func(c *cfg.Config, mountPoint string) error

// NewRootCmd accepts the mountFn that it executes with the parsed
// configuration.
func NewRootCmd(m mountFn) (*cobra.Command, error) {
	var (
		configObj cfg.Config
		cfgFile   string
	)
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "pathfuse [flags] mount_point",
		Short: "Mount a sample in-memory file system",
		Long: `pathfuse mounts an in-memory file system whose operations are served
by a path-based handler. Kernel options are given with -o and library options
(debug, max_threads=N, attr_timeout=S, entry_timeout=S, default_errno=NAME)
with --lib-opt.`,
		Version:      common.GetVersion(),
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, cfgFile, &configObj); err != nil {
				return err
			}
			mountPoint, err := util.GetResolvedPath(args[0])
			if err != nil {
				return fmt.Errorf("canonicalizing mount point: %w", err)
			}
			return m(&configObj, mountPoint)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file. Flags take precedence over its values.")
	if err := cfg.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("error while binding flags: %w", err)
	}
	return rootCmd, nil
}

// loadConfig merges the config file, if any, under the flags and decodes
// the result into c.
func loadConfig(v *viper.Viper, cfgFile string, c *cfg.Config) error {
	if cfgFile != "" {
		path, err := util.GetResolvedPath(cfgFile)
		if err != nil {
			return fmt.Errorf("resolving config file path: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error while reading the config file: %w", err)
		}
	}

	err := v.Unmarshal(c, viper.DecodeHook(cfg.DecodeHook()), func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.TagName = "yaml"
	})
	if err != nil {
		return fmt.Errorf("error while unmarshaling the config: %w", err)
	}
	if err := cfg.ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Execute runs the root command with the real mount.
func Execute() {
	rootCmd, err := NewRootCmd(Mount)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
