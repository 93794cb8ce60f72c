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
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/pathfuse/pathfuse/cfg"
	"github.com/pathfuse/pathfuse/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mountArgs struct {
	config     *cfg.Config
	mountPoint string
	called     bool
}

func runRoot(t *testing.T, args ...string) (*mountArgs, error) {
	t.Helper()
	got := &mountArgs{}
	cmd, err := NewRootCmd(func(c *cfg.Config, mountPoint string) error {
		got.config = c
		got.mountPoint = mountPoint
		got.called = true
		return nil
	})
	require.NoError(t, err)
	cmd.SetArgs(args)
	cmd.SetOut(&discard{})
	cmd.SetErr(&discard{})
	return got, cmd.Execute()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRootCmd_Defaults(t *testing.T) {
	got, err := runRoot(t, "/mnt/demo")

	require.NoError(t, err)
	require.True(t, got.called)
	assert.Equal(t, "/mnt/demo", got.mountPoint)
	assert.Equal(t, "pathfuse", got.config.FileSystem.FsName)
	assert.True(t, got.config.FileSystem.MultiThreaded)
	assert.Equal(t, time.Second, got.config.FileSystem.AttrTimeout)
	assert.Equal(t, "ENOENT", got.config.FileSystem.DefaultErrno)
}

func TestRootCmd_RelativeMountPoint(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := runRoot(t, "mnt")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "mnt"), got.mountPoint)
}

func TestRootCmd_WrongArgCount(t *testing.T) {
	for _, args := range [][]string{{}, {"a", "b"}} {
		got, err := runRoot(t, args...)

		assert.Error(t, err)
		assert.False(t, got.called)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	got, err := runRoot(t,
		"-o", "allow_other,fsname=demo",
		"--lib-opt", "max_threads=4",
		"--foreground",
		"--multi-threaded=false",
		"/mnt/demo")

	require.NoError(t, err)
	assert.Equal(t, []string{"allow_other", "fsname=demo"}, got.config.FileSystem.KernelOptions)
	assert.Equal(t, []string{"max_threads=4"}, got.config.FileSystem.LibOptions)
	assert.True(t, got.config.Foreground)
	assert.False(t, got.config.FileSystem.MultiThreaded)
}

func TestRootCmd_ConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
app-name: demo
file-system:
  fs-name: from-file
  max-threads: 7
  attr-timeout: 3s
logging:
  severity: debug
`), 0644))

	got, err := runRoot(t, "--config-file", cfgFile, "--max-threads=2", "/mnt/demo")

	require.NoError(t, err)
	assert.Equal(t, "demo", got.config.AppName)
	assert.Equal(t, "from-file", got.config.FileSystem.FsName)
	assert.Equal(t, 3*time.Second, got.config.FileSystem.AttrTimeout)
	assert.Equal(t, cfg.DebugLogSeverity, got.config.Logging.Severity)
	// Flags win over the file.
	assert.Equal(t, int64(2), got.config.FileSystem.MaxThreads)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	got, err := runRoot(t, "--config-file", filepath.Join(t.TempDir(), "nope.yaml"), "/mnt/demo")

	assert.Error(t, err)
	assert.False(t, got.called)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	got, err := runRoot(t, "--default-errno=ENOTANERRNO", "/mnt/demo")

	assert.Error(t, err)
	assert.False(t, got.called)
}

func TestLibDefaults(t *testing.T) {
	c := &cfg.Config{
		Debug: cfg.DebugConfig{Fuse: true},
		FileSystem: cfg.FileSystemConfig{
			MaxThreads:   5,
			AttrTimeout:  2 * time.Second,
			EntryTimeout: 4 * time.Second,
			DefaultErrno: "eacces",
		},
	}

	o := libDefaults(c)

	assert.True(t, o.Debug)
	assert.Equal(t, int64(5), o.MaxThreads)
	assert.Equal(t, 2*time.Second, o.AttrTimeout)
	assert.Equal(t, 4*time.Second, o.EntryTimeout)
	assert.Equal(t, syscall.EACCES, o.DefaultErrno)
}

func TestDaemonArgs(t *testing.T) {
	args := daemonArgs([]string{"-o", "ro", "mnt"})

	assert.Equal(t, []string{"--foreground", "-o", "ro", "mnt"}, args)
}

func TestDaemonArgs_FlagsAfterMountPoint(t *testing.T) {
	t.Setenv(util.PATHFUSE_PARENT_PROCESS_DIR, "/home/me")
	args := daemonArgs([]string{"mnt", "-o", "ro", "--lib-opt=debug"})

	got, err := runRoot(t, args...)

	require.NoError(t, err)
	assert.Equal(t, "/home/me/mnt", got.mountPoint)
	assert.True(t, got.config.Foreground)
	assert.Equal(t, []string{"ro"}, got.config.FileSystem.KernelOptions)
	assert.Equal(t, []string{"debug"}, got.config.FileSystem.LibOptions)
}

func TestDaemonEnv(t *testing.T) {
	t.Setenv("PATH", "/usr/bin:/bin")

	env := daemonEnv()

	assert.Contains(t, env, "PATH=/usr/bin:/bin")
	assert.Contains(t, env, "PATHFUSE_IN_BACKGROUND_MODE=true")
}
