// Package freeport asks the OS kernel for an unused TCP port.
//
// This is the one component in the module with no third-party grounding:
// asking the kernel for an ephemeral port and releasing it is a three-line
// stdlib idiom (net.Listen on port 0, read back the assigned port, close).
// No library in the corpus wraps this more usefully than the stdlib call
// itself.
package freeport

import "net"

// Get returns an OS-assigned TCP port on 127.0.0.1 that was free at the
// moment of the call. The port is released before returning, so there is
// an unavoidable (if narrow) race between this call and whatever binds the
// port next; callers that need a stronger guarantee should hold the
// listener open themselves instead of calling this helper.
func Get() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}
