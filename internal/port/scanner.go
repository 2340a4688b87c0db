// Package port checks host-port availability for the SSH port that an
// environment publishes when remote access is enabled.
//
// The check asks the operating system directly via net.Listen rather than
// parsing /proc/net/* or shelling out to lsof/ss, which may require
// elevated permissions.
package port

import (
	"fmt"
	"net"
)

// Scanner checks whether specific ports are available on the host machine.
//
// The struct is stateless, but is defined as a struct (rather than bare
// functions) so the check is injectable as a dependency and future options
// (bind address, timeout) can be added without breaking the API.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable checks whether a single TCP port is free on the host.
//
// We bind to all interfaces (":port" rather than "127.0.0.1:port") because
// the engine publishes ports on 0.0.0.0, so the check must cover the same
// address space to avoid false positives.
//
// Returns true if the port is free, false if it is already in use.
func (s *Scanner) IsAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	// Close immediately: only availability was being tested, no
	// connections are accepted.
	defer func() { _ = listener.Close() }()
	return true
}
