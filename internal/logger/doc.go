// Package logger wraps zap for the alarm clock binaries:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing (ParseLogLevel, SetLevel),
//   - leveled helpers (Infof, WarnKV, ErrorKV, Fatal, ...).
//
// Coordinators receive a context and log through the logger carried by it,
// so every line is tagged with the component that produced it.
package logger
