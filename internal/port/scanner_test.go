package port

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIsAvailable_FreePort verifies that a port the OS just handed out
// (and which was immediately released) is reported as available.
func TestIsAvailable_FreePort(t *testing.T) {
	// Grab an ephemeral port from the OS, then release it so the scanner
	// sees it as free.
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	s := NewScanner()
	assert.True(t, s.IsAvailable(port))
}

// TestIsAvailable_PortInUse verifies that a port held open by a listener
// is reported as unavailable.
func TestIsAvailable_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	port := listener.Addr().(*net.TCPAddr).Port

	s := NewScanner()
	assert.False(t, s.IsAvailable(port))
}
