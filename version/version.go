// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package version provides build information about the benchmarking harness.
package version

import (
	"runtime/debug"
	"sync"
)

// Name of the application.
const Name string = "UniqueBench"

const develVersion = "(devel)"

var source = sync.OnceValue(func() debug.Module {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main
	}
	return debug.Module{Version: develVersion}
})

// GetVersion returns the version of the application.
func GetVersion() string {
	if v := source().Version; v != "" {
		return v
	}
	return develVersion
}

// GetSource returns the source path of the main package.
func GetSource() string {
	return source().Path
}

// GetUserAgent returns the User-Agent value sent to remote APIs.
func GetUserAgent() string {
	return Name + "/" + GetVersion()
}
