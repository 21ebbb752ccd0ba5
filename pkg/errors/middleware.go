package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// RecoveryFunc turns a recovered panic value into an error. The request that
// panicked is passed so implementations can log it.
type RecoveryFunc func(r *http.Request, p interface{}) error

// DefaultRecoveryFunc converts a panic into a PermanentError carrying the stack.
func DefaultRecoveryFunc(_ *http.Request, p interface{}) error {
	return NewPermanent(fmt.Sprintf("panic recovered: %v\nstack trace:\n%s", p, debug.Stack()), nil)
}

// RecoveryMiddleware recovers handler panics and answers 500 instead of
// tearing down the connection. A nil recoveryFunc uses DefaultRecoveryFunc.
func RecoveryMiddleware(recoveryFunc RecoveryFunc) func(http.Handler) http.Handler {
	if recoveryFunc == nil {
		recoveryFunc = DefaultRecoveryFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					WriteHTTPError(w, recoveryFunc(r, p))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
