// Package monitoring holds the package-level diagnostic logger shared by the
// tracker, link, and calibration packages.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf but may be replaced
// via SetLogger; tests typically mute it.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}
