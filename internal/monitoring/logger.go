// Package monitoring is the single logging sink for the diagnosis service.
package monitoring

import "log"

// Logf receives the verdict and request-failure lines of the pipeline and
// handlers. It writes through log.Printf until SetLogger swaps it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as the diagnostic sink. Nil discards all output.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
