// Package config defines the settings of the alarm clock binaries.
//
// Default returns the compiled-in values the device boots with. An optional
// YAML settings file overrides any subset of them; Load, Save and Validate
// work on that file.
package config
