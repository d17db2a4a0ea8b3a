// Package safe wraps goroutine launches so panics reach the log file.
// The terminal UI owns stdout and stderr while it runs, so an unlogged
// panic in a background goroutine would vanish with the screen.
package safe

import (
	"log"
	"runtime/debug"
)

// Go runs fn on a new goroutine, logging any panic with its stack before
// re-panicking. name identifies the goroutine in the log line.
func Go(logger *log.Logger, name string, fn func()) {
	if logger == nil {
		panic("safe: nil logger")
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
