package simwarp

import (
	"testing"

	"github.com/gomlx/tensorcores/devices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerAccess(t *testing.T) {
	d := must.M1(New("3"))
	defer d.Finalize()

	// Queries work before anything is enabled.
	value, err := devices.PeerAccessInfo(d, 0, 1, devices.PeerAccessSupported)
	require.NoError(t, err)
	assert.Equal(t, 1, value, "simulated devices share host memory")
	value, err = devices.PeerAccessInfo(d, 0, 1, devices.PeerAtomicsSupported)
	require.NoError(t, err)
	assert.Equal(t, 0, value)

	require.NoError(t, devices.EnablePeerAccess(d, 0, 1))
	assert.Equal(t, 1, d.peers.numEnabled())

	// Links are directional: 1->0 is independent of 0->1.
	require.NoError(t, devices.EnablePeerAccess(d, 1, 0))
	assert.Equal(t, 2, d.peers.numEnabled())

	// Double-enable is a driver error.
	err = devices.EnablePeerAccess(d, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, devices.ErrPeerAccess))

	require.NoError(t, devices.DisablePeerAccess(d, 0, 1))
	require.NoError(t, devices.DisablePeerAccess(d, 1, 0))
	assert.Zero(t, d.peers.numEnabled())

	// Disabling a link that is not enabled is a driver error.
	err = devices.DisablePeerAccess(d, 0, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, devices.ErrPeerAccess))
}

func TestPeerAccessBadPairs(t *testing.T) {
	d := must.M1(New("2"))
	defer d.Finalize()

	// A device cannot peer with itself.
	err := devices.EnablePeerAccess(d, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, devices.ErrPeerAccess))

	// Out-of-range devices.
	err = devices.EnablePeerAccess(d, 0, 2)
	require.Error(t, err)
	_, err = devices.PeerAccessInfo(d, -1, 1, devices.PeerAccessSupported)
	require.Error(t, err)

	// Unknown attributes are rejected before reaching the driver.
	_, err = devices.PeerAccessInfo(d, 0, 1, devices.PeerAttribute(42))
	require.Error(t, err)
	assert.False(t, errors.Is(err, devices.ErrPeerAccess))
}

// TestPeerDriverRequiresContext checks the raw driver surface insists on its
// device being the active context -- package devices scopes it on every entry
// point, a direct call without it is a bug.
func TestPeerDriverRequiresContext(t *testing.T) {
	d := must.M1(New("2"))
	defer d.Finalize()

	err := d.DriverEnablePeerAccess(0, 1)
	require.Error(t, err)
	_, err = d.DriverPeerAttribute(0, 1, devices.PeerAccessSupported)
	require.Error(t, err)
}
