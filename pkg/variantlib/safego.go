package variantlib

import (
	"log"
	"runtime/debug"
	"sync"
)

// safeGo runs fn in a goroutine with panic recovery.
// If wg is non-nil, it's decremented on completion (normal or panic).
// If l is non-nil, panics are logged with stack traces.
func safeGo(l *log.Logger, wg *sync.WaitGroup, context string, fn func()) {
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer func() {
			if r := recover(); r != nil && l != nil {
				l.Printf("PANIC [%s]: %v\n%s", context, r, debug.Stack())
			}
		}()
		fn()
	}()
}
