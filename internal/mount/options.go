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

// Package mount turns the kernel-level and library-level option tokens given
// at mount time into runtime settings.
package mount

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/pathfuse/pathfuse/cfg"
)

// ParseOptions parse an option string in the format accepted by mount(8) and
// generated for its external mount helpers.
//
// It is assumed that option name and values do not contain commas, and that
// the first equals sign in an option is the name/value separator. There is no
// support for escaping.
//
// For example, if the input is
//
//	user,foo=bar=baz,qux
//
// then the following will be inserted into the map.
//
//	"user": "",
//	"foo": "bar=baz",
//	"qux": "",
func ParseOptions(m map[string]string, s string) {
	for _, p := range strings.Split(s, ",") {
		if p == "" {
			continue
		}
		var name string
		var value string

		// Split on the first equals sign.
		if equalsIndex := strings.IndexByte(p, '='); equalsIndex != -1 {
			name = p[:equalsIndex]
			value = p[equalsIndex+1:]
		} else {
			name = p
		}

		m[name] = value
	}
}

// KernelOptions are the options handed to the kernel when mounting.
type KernelOptions struct {
	// The name of the file system as displayed by e.g. `mount`.
	FSName string

	// The subtype of the file system, for use in "mount -t" on Linux.
	Subtype string

	// The volume name, for use in the UI of OS X.
	VolumeName string

	ReadOnly bool

	// Everything else, passed to mount(8) verbatim.
	Options map[string]string
}

// ParseKernelOptions parses the repeated "-o" tokens. The names fsname,
// subtype, volname, ro and rw are lifted into fields; the last of ro and rw
// wins.
func ParseKernelOptions(tokens []string) KernelOptions {
	k := KernelOptions{Options: make(map[string]string)}
	for _, t := range tokens {
		for _, p := range strings.Split(t, ",") {
			m := make(map[string]string)
			ParseOptions(m, p)
			for name, value := range m {
				k.set(name, value)
			}
		}
	}
	return k
}

func (k *KernelOptions) set(name, value string) {
	switch name {
	case "fsname":
		k.FSName = value
	case "subtype":
		k.Subtype = value
	case "volname":
		k.VolumeName = value
	case "ro":
		k.ReadOnly = true
	case "rw":
		k.ReadOnly = false
	default:
		k.Options[name] = value
	}
}

// MountConfig builds the runtime mount configuration. An unset file system
// name, subtype or volume name is replaced by defaultName.
func (k KernelOptions) MountConfig(defaultName string) *fuse.MountConfig {
	mc := &fuse.MountConfig{
		FSName:     k.FSName,
		Subtype:    k.Subtype,
		VolumeName: k.VolumeName,
		ReadOnly:   k.ReadOnly,
		Options:    make(map[string]string, len(k.Options)),
	}
	for name, value := range k.Options {
		mc.Options[name] = value
	}
	if mc.FSName == "" {
		mc.FSName = defaultName
	}
	if mc.Subtype == "" {
		mc.Subtype = defaultName
	}
	if mc.VolumeName == "" {
		mc.VolumeName = defaultName
	}
	return mc
}

// LibOptions are the options consumed by the library itself.
type LibOptions struct {
	// Log every op and the runtime's debug output.
	Debug bool

	// Upper bound on ops served at once by a multi-threaded loop.
	MaxThreads int64

	AttrTimeout  time.Duration
	EntryTimeout time.Duration

	// Answer for failures the handler did not classify.
	DefaultErrno syscall.Errno
}

// ParseLibOptions applies the library option tokens on top of defaults.
// Recognized names are debug (or -d), max_threads=N, attr_timeout=S,
// entry_timeout=S with S in seconds, and default_errno=NAME.
func ParseLibOptions(tokens []string, defaults LibOptions) (LibOptions, error) {
	o := defaults
	for _, t := range tokens {
		m := make(map[string]string)
		ParseOptions(m, t)
		for name, value := range m {
			if err := o.set(name, value); err != nil {
				return LibOptions{}, err
			}
		}
	}
	return o, nil
}

func (o *LibOptions) set(name, value string) error {
	switch name {
	case "debug", "-d":
		o.Debug = true

	case "max_threads":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid value of max_threads (%q), must be a positive integer", value)
		}
		o.MaxThreads = n

	case "attr_timeout":
		d, err := parseSeconds(name, value)
		if err != nil {
			return err
		}
		o.AttrTimeout = d

	case "entry_timeout":
		d, err := parseSeconds(name, value)
		if err != nil {
			return err
		}
		o.EntryTimeout = d

	case "default_errno":
		errno := cfg.ParseErrno(value)
		if errno == 0 {
			return fmt.Errorf("invalid value of default_errno (%q), not an errno name", value)
		}
		o.DefaultErrno = errno

	default:
		return fmt.Errorf("unknown library option %q", name)
	}
	return nil
}

func parseSeconds(name, value string) (time.Duration, error) {
	s, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(s) || s < 0 || math.IsInf(s, 0) || s*float64(time.Second) > math.MaxInt64 {
		return 0, fmt.Errorf("invalid value of %s (%q), must be a non-negative number of seconds", name, value)
	}
	return time.Duration(s * float64(time.Second)), nil
}
