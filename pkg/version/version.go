// Package version holds the build version string.
package version

// Version is the current release. Overridden at build time via
// -ldflags "-X fernweh/pkg/version.Version=...".
var Version = "0.4.0-dev"
