// Package common holds helpers shared by the alarm clock services.
//
// It provides the gRPC client the device uses to reach its configuration
// server: per-target connections, call timeouts and a bounded response size.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
