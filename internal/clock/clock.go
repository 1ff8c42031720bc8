// Package clock defines a monotonic wall-time collaborator and a real
// implementation, so the circuit breaker's timing decisions can be
// driven by a fake clock in tests.
package clock

import "time"

// Clock yields the current monotonic wall-time in milliseconds.
type Clock interface {
	NowMillis() uint64
}

// Real is the production Clock backed by time.Now.
type Real struct{}

// NowMillis returns the current wall-clock time in milliseconds.
func (Real) NowMillis() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond))
}

// Default is the shared Real clock instance.
var Default Clock = Real{}
