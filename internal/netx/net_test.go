package netx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundIP_Loopback(t *testing.T) {
	ip, err := OutboundIP("127.0.0.1:9")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestOutboundIP_BadTarget(t *testing.T) {
	_, err := OutboundIP("not-a-host-port")
	require.Error(t, err)
}

func TestResolveClientIP_PassesThrough(t *testing.T) {
	for _, v := range []string{"", "10.1.2.3", "2001:db8::1"} {
		got, err := ResolveClientIP(v)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}
