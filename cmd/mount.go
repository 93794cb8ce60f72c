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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/daemonize"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
	"github.com/kardianos/osext"
	"github.com/pathfuse/pathfuse/cfg"
	"github.com/pathfuse/pathfuse/common"
	"github.com/pathfuse/pathfuse/internal/locker"
	"github.com/pathfuse/pathfuse/internal/logger"
	"github.com/pathfuse/pathfuse/internal/memfs"
	"github.com/pathfuse/pathfuse/internal/monitor"
	"github.com/pathfuse/pathfuse/internal/mount"
	"github.com/pathfuse/pathfuse/internal/perms"
	"github.com/pathfuse/pathfuse/internal/util"
	"github.com/pathfuse/pathfuse/metrics"
	"github.com/pathfuse/pathfuse/session"
	"golang.org/x/sys/unix"
)

const (
	SuccessfulMountMessage         = "File system has been successfully mounted."
	UnsuccessfulMountMessagePrefix = "Error while mounting pathfuse"

	metricWorkers    = 3
	metricBufferSize = 256
)

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func registerTerminatingSignalHandler(s *session.Session) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, unix.SIGTERM)

	// Unmount when a signal is received, retrying while the file system is
	// busy.
	go func() {
		for {
			sig := <-signalChan
			logger.Infof("Received %v, attempting to unmount...", sig)

			err := s.Unmount()
			if errors.Is(err, session.ErrNotActive) {
				return
			}
			if err != nil {
				logger.Errorf("Failed to unmount in response to %v: %v", sig, err)
				continue
			}
			logger.Infof("Successfully unmounted in response to %v.", sig)
			return
		}
	}()
}

// libDefaults maps the config onto the library options that --lib-opt
// tokens may override.
func libDefaults(c *cfg.Config) mount.LibOptions {
	return mount.LibOptions{
		Debug:        c.Debug.Fuse,
		MaxThreads:   c.FileSystem.MaxThreads,
		AttrTimeout:  c.FileSystem.AttrTimeout,
		EntryTimeout: c.FileSystem.EntryTimeout,
		DefaultErrno: cfg.ParseErrno(c.FileSystem.DefaultErrno),
	}
}

// daemonArgs returns the arguments for the background process: ours, in
// foreground mode. Relative paths among them are resolved by the daemon
// against PATHFUSE_PARENT_PROCESS_DIR.
func daemonArgs(args []string) []string {
	return append([]string{"--foreground"}, args...)
}

// daemonEnv returns the environment passed to the background process.
func daemonEnv() []string {
	// Pass along PATH so that the daemon can find fusermount on Linux.
	env := []string{
		fmt.Sprintf("PATH=%s", os.Getenv("PATH")),
	}

	// Relative paths given to the foreground process keep their meaning.
	if dir, err := os.Getwd(); err == nil {
		env = append(env, fmt.Sprintf("%s=%s", util.PATHFUSE_PARENT_PROCESS_DIR, dir))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		env = append(env, fmt.Sprintf("HOME=%s", homeDir))
	}

	env = append(env, fmt.Sprintf("%s=true", logger.PathfuseInBackgroundMode))
	return env
}

func callDaemonizeSignalOutcome(err error) {
	if err2 := daemonize.SignalOutcome(err); err2 != nil {
		logger.Errorf("Failed to signal error to parent-process from daemon: %v", err2)
	}
}

////////////////////////////////////////////////////////////////////////
// main logic
////////////////////////////////////////////////////////////////////////

// Mount mounts the sample file system at mountPoint and serves it until it
// is unmounted. Without --foreground it starts a daemon doing so and
// returns once the daemon reports the outcome of mounting.
func Mount(c *cfg.Config, mountPoint string) (err error) {
	logger.SetLogFormat(c.Logging.Format)

	if c.Foreground {
		if err = logger.InitLogFile(c.Logging); err != nil {
			return fmt.Errorf("init log file: %w", err)
		}
		defer logger.Close()
	}

	logger.Infof("Start pathfuse/%s for app %q using mount point: %s\n", common.GetVersion(), c.AppName, mountPoint)
	if c.Foreground || c.Logging.FilePath == "" {
		if s, err := cfg.Stringify(c); err == nil {
			logger.Info("pathfuse config", "config", s)
		}
	}

	if !c.Foreground {
		return runDaemon(c)
	}
	return serve(context.Background(), c, mountPoint)
}

func runDaemon(c *cfg.Config) error {
	path, err := osext.Executable()
	if err != nil {
		return fmt.Errorf("osext.Executable: %w", err)
	}

	// Captures the standard error of the background process.
	var stderrFile *os.File
	if c.Logging.FilePath != "" {
		stderrFileName := string(c.Logging.FilePath) + ".stderr"
		if stderrFile, err = os.OpenFile(stderrFileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644); err != nil {
			return err
		}
		defer stderrFile.Close()
	}

	err = daemonize.Run(path, daemonArgs(os.Args[1:]), daemonEnv(), os.Stdout, stderrFile)
	if err != nil {
		return fmt.Errorf("daemonize.Run: %w", err)
	}
	logger.Infof(SuccessfulMountMessage)
	return nil
}

func serve(ctx context.Context, c *cfg.Config, mountPoint string) (err error) {
	if c.Debug.ExitOnInvariantViolation {
		locker.EnableInvariantsCheck()
		syncutil.EnableInvariantChecking()
	}
	if c.Debug.LogMutex {
		locker.EnableDebugMessages()
	}

	id := uuid.New()
	var metricHandle metrics.MetricHandle = metrics.NewNoopMetrics()
	var shutdownFns []common.ShutdownFn
	if c.Metrics.PrometheusPort > 0 {
		shutdownFns = append(shutdownFns, monitor.SetupOTelMetricExporters(ctx, c, id.String()))
		if mh, err := metrics.NewOTelMetrics(ctx, metricWorkers, metricBufferSize); err != nil {
			logger.Errorf("Falling back to no-op metrics: %v", err)
		} else {
			metricHandle = mh
		}
	}
	shutdownFns = append(shutdownFns, monitor.SetupTracing(ctx, c, id.String()))
	shutdownFn := common.JoinShutdownFunc(shutdownFns...)
	defer func() {
		if shutdownErr := shutdownFn(ctx); shutdownErr != nil {
			logger.Errorf("Error while shutting down exporters: %v", shutdownErr)
		}
	}()

	uid, gid, err := perms.Owner(c.FileSystem.Uid, c.FileSystem.Gid)
	if err != nil {
		return err
	}
	if uid == 0 && c.FileSystem.Uid < 0 {
		logger.Warnf("pathfuse invoked as root. All files will be owned by root.")
	}
	h := memfs.New(timeutil.RealClock(), uid, gid, os.FileMode(c.FileSystem.DirMode))

	s, err := session.Start(ctx, mountPoint, c.FileSystem.KernelOptions, c.FileSystem.LibOptions, h, &session.Options{
		ID:            id,
		Defaults:      libDefaults(c),
		Name:          c.FileSystem.FsName,
		MetricHandle:  metricHandle,
		EnableTracing: c.Monitoring.ExperimentalTracingMode != "",
	})
	if err != nil {
		logger.Errorf("%s: %v\n", UnsuccessfulMountMessagePrefix, err)
		callDaemonizeSignalOutcome(fmt.Errorf("%s: %w", UnsuccessfulMountMessagePrefix, err))
		return err
	}
	logger.Info(SuccessfulMountMessage)
	callDaemonizeSignalOutcome(nil)

	registerTerminatingSignalHandler(s)

	start := time.Now()
	if c.FileSystem.MultiThreaded {
		err = s.LoopMT(ctx)
	} else {
		err = s.Loop(ctx)
	}
	logger.Infof("Served %s for %v", mountPoint, time.Since(start).Round(time.Second))

	if uerr := s.Unmount(); uerr != nil && !errors.Is(uerr, session.ErrNotActive) {
		logger.Errorf("Unmount: %v", uerr)
	}
	return err
}
