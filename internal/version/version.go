// SPDX-License-Identifier: MIT

// Package version exposes build identity, stamped via ldflags.
package version

var (
	// Version is the release tag of this build.
	Version = "v1.0.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
