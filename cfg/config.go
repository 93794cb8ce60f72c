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

package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	AppName string `yaml:"app-name"`

	Debug DebugConfig `yaml:"debug"`

	FileSystem FileSystemConfig `yaml:"file-system"`

	Foreground bool `yaml:"foreground"`

	Logging LoggingConfig `yaml:"logging"`

	Metrics MetricsConfig `yaml:"metrics"`

	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation"`

	Fuse bool `yaml:"fuse"`

	LogMutex bool `yaml:"log-mutex"`
}

type FileSystemConfig struct {
	AttrTimeout time.Duration `yaml:"attr-timeout"`

	DefaultErrno string `yaml:"default-errno"`

	DirMode Octal `yaml:"dir-mode"`

	EntryTimeout time.Duration `yaml:"entry-timeout"`

	FsName string `yaml:"fs-name"`

	Gid int64 `yaml:"gid"`

	KernelOptions []string `yaml:"kernel-options"`

	LibOptions []string `yaml:"lib-options"`

	MaxThreads int64 `yaml:"max-threads"`

	MultiThreaded bool `yaml:"multi-threaded"`

	Uid int64 `yaml:"uid"`
}

type LogRotateLoggingConfig struct {
	BackupFileCount int64 `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`

	MaxFileSizeMb int64 `yaml:"max-file-size-mb"`
}

type LoggingConfig struct {
	FilePath ResolvedPath `yaml:"file-path"`

	Format string `yaml:"format"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`

	Severity LogSeverity `yaml:"severity"`
}

type MetricsConfig struct {
	PrometheusPort int64 `yaml:"prometheus-port"`
}

type MonitoringConfig struct {
	ExperimentalTracingMode string `yaml:"experimental-tracing-mode"`
}

func BindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("app-name", "", "", "The application name of this mount.")

	err = v.BindPFlag("app-name", flagSet.Lookup("app-name"))
	if err != nil {
		return err
	}

	flagSet.DurationP("attr-timeout", "", time.Second, "How long the kernel may cache the attributes returned for an inode.")

	err = v.BindPFlag("file-system.attr-timeout", flagSet.Lookup("attr-timeout"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_fuse", "", false, "Enables debug logs of every request and reply exchanged with the kernel.")

	err = v.BindPFlag("debug.fuse", flagSet.Lookup("debug_fuse"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_invariants", "", false, "Exit when internal invariants are violated.")

	err = v.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug_invariants"))
	if err != nil {
		return err
	}

	flagSet.BoolP("debug_mutex", "", false, "Print debug messages when a mutex is held too long.")

	err = v.BindPFlag("debug.log-mutex", flagSet.Lookup("debug_mutex"))
	if err != nil {
		return err
	}

	flagSet.StringP("default-errno", "", "ENOENT", "The error returned to the kernel when a handler fails without an errno.")

	err = v.BindPFlag("file-system.default-errno", flagSet.Lookup("default-errno"))
	if err != nil {
		return err
	}

	flagSet.StringP("dir-mode", "", "0755", "Permissions bits for the root directory of the sample file system, in octal.")

	err = v.BindPFlag("file-system.dir-mode", flagSet.Lookup("dir-mode"))
	if err != nil {
		return err
	}

	flagSet.DurationP("entry-timeout", "", time.Second, "How long the kernel may cache a name lookup.")

	err = v.BindPFlag("file-system.entry-timeout", flagSet.Lookup("entry-timeout"))
	if err != nil {
		return err
	}

	flagSet.StringP("experimental-tracing-mode", "", "", "Experimental: specify tracing mode. Value can be 'stdout' or empty to disable tracing.")

	err = v.BindPFlag("monitoring.experimental-tracing-mode", flagSet.Lookup("experimental-tracing-mode"))
	if err != nil {
		return err
	}

	flagSet.BoolP("foreground", "", false, "Stay in the foreground after mounting.")

	err = v.BindPFlag("foreground", flagSet.Lookup("foreground"))
	if err != nil {
		return err
	}

	flagSet.StringP("fs-name", "", "pathfuse", "The file system name shown by mount(8).")

	err = v.BindPFlag("file-system.fs-name", flagSet.Lookup("fs-name"))
	if err != nil {
		return err
	}

	flagSet.IntP("gid", "", -1, "GID owner of the root directory of the sample file system.")

	err = v.BindPFlag("file-system.gid", flagSet.Lookup("gid"))
	if err != nil {
		return err
	}

	flagSet.StringSliceP("lib-opt", "", []string{}, "Library-level options, e.g. debug, max_threads=N, attr_timeout=S, entry_timeout=S, default_errno=NAME.")

	err = v.BindPFlag("file-system.lib-options", flagSet.Lookup("lib-opt"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "The file for storing logs. When not provided, logs are printed to stdout.")

	err = v.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-format", "", "text", "The format of the log file: 'text' or 'json'.")

	err = v.BindPFlag("logging.format", flagSet.Lookup("log-format"))
	if err != nil {
		return err
	}

	flagSet.IntP("log-rotate-backup-file-count", "", 10, "The maximum number of backup log files to retain after they have been rotated. A value of 0 retains all backups.")

	err = v.BindPFlag("logging.log-rotate.backup-file-count", flagSet.Lookup("log-rotate-backup-file-count"))
	if err != nil {
		return err
	}

	flagSet.BoolP("log-rotate-compress", "", true, "Controls whether the rotated log files should be compressed using gzip.")

	err = v.BindPFlag("logging.log-rotate.compress", flagSet.Lookup("log-rotate-compress"))
	if err != nil {
		return err
	}

	flagSet.IntP("log-rotate-max-file-size-mb", "", 512, "The maximum size in megabytes that a log file can reach before it is rotated.")

	err = v.BindPFlag("logging.log-rotate.max-file-size-mb", flagSet.Lookup("log-rotate-max-file-size-mb"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", "info", "Specifies the logging severity expressed as one of [trace, debug, info, warning, error, off]")

	err = v.BindPFlag("logging.severity", flagSet.Lookup("log-severity"))
	if err != nil {
		return err
	}

	flagSet.IntP("max-threads", "", DefaultMaxThreads, "The maximum number of requests dispatched concurrently by the multi-threaded loop.")

	err = v.BindPFlag("file-system.max-threads", flagSet.Lookup("max-threads"))
	if err != nil {
		return err
	}

	flagSet.BoolP("multi-threaded", "", true, "Dispatch requests concurrently. When false, one request is completed before the next is read.")

	err = v.BindPFlag("file-system.multi-threaded", flagSet.Lookup("multi-threaded"))
	if err != nil {
		return err
	}

	flagSet.StringSliceP("o", "o", []string{}, "Additional system-specific mount options. Multiple options can be passed as comma separated.")

	err = v.BindPFlag("file-system.kernel-options", flagSet.Lookup("o"))
	if err != nil {
		return err
	}

	flagSet.IntP("prometheus-port", "", 0, "Expose Prometheus metrics endpoint on this port and a path of /metrics.")

	err = v.BindPFlag("metrics.prometheus-port", flagSet.Lookup("prometheus-port"))
	if err != nil {
		return err
	}

	flagSet.IntP("uid", "", -1, "UID owner of the root directory of the sample file system.")

	err = v.BindPFlag("file-system.uid", flagSet.Lookup("uid"))
	if err != nil {
		return err
	}

	return nil
}
