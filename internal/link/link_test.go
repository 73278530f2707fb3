// internal/link/link_test.go
package link

import (
	"errors"
	"testing"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bugst "go.bug.st/serial"
)

func TestDrivers_Registered(t *testing.T) {
	assert.Equal(t, []string{"bugst", "goburrow", "jacobsa"}, Drivers())
	assert.True(t, HasDriver(DefaultDriver))
	assert.False(t, HasDriver("tarm"))
}

func TestOpener_UnknownDriver(t *testing.T) {
	_, err := Opener("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDriver))
}

func TestOpener_EmptyMeansDefault(t *testing.T) {
	fn, err := Opener("")
	require.NoError(t, err)
	assert.NotNil(t, fn)
}

func TestParams_String(t *testing.T) {
	p := Params{Port: "/dev/ttyUSB0", Baud: 115200, DataBits: 8, Parity: "N", StopBits: 1}
	assert.Equal(t, "/dev/ttyUSB0@115200/8N1", p.String())
}

func TestInterCharTimeoutMs(t *testing.T) {
	assert.Equal(t, uint(100), interCharTimeoutMs(0))
	assert.Equal(t, uint(100), interCharTimeoutMs(50*time.Millisecond))
	assert.Equal(t, uint(100), interCharTimeoutMs(100*time.Millisecond))
	assert.Equal(t, uint(200), interCharTimeoutMs(101*time.Millisecond))
	assert.Equal(t, uint(1000), interCharTimeoutMs(time.Second))
}

func TestParityMapping(t *testing.T) {
	assert.Equal(t, bugst.EvenParity, bugstParity("E"))
	assert.Equal(t, bugst.OddParity, bugstParity("O"))
	assert.Equal(t, bugst.MarkParity, bugstParity("M"))
	assert.Equal(t, bugst.SpaceParity, bugstParity("S"))
	assert.Equal(t, bugst.NoParity, bugstParity("N"))

	for p, want := range map[string]jserial.ParityMode{
		"E": jserial.PARITY_EVEN,
		"O": jserial.PARITY_ODD,
		"N": jserial.PARITY_NONE,
		"":  jserial.PARITY_NONE,
	} {
		got, err := jacobsaParity(p)
		require.NoError(t, err, p)
		assert.Equal(t, want, got, p)
	}

	for _, p := range []string{"M", "S"} {
		_, err := jacobsaParity(p)
		assert.Error(t, err, "jacobsa cannot frame parity %s", p)
	}
}

func TestSupportsParity(t *testing.T) {
	assert.True(t, SupportsParity("bugst", "M"))
	assert.True(t, SupportsParity("bugst", "s"))
	assert.True(t, SupportsParity("jacobsa", "E"))
	assert.False(t, SupportsParity("jacobsa", "M"))
	assert.False(t, SupportsParity("jacobsa", "S"))
	assert.False(t, SupportsParity("", "M"), "default driver")
	assert.True(t, SupportsParity("", ""))
	assert.False(t, SupportsParity("nope", "N"))
	assert.False(t, SupportsParity("bugst", "NE"))
}
