// Package version exposes build metadata of the alarm clock binaries.
//
// Version, Commit and BuildTime are injected with -ldflags -X at build time.
// The device client sends UserAgent with every call so the configuration
// server can tell firmware builds apart in its logs.
package version
