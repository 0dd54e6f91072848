package serial

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	cases := map[string]Driver{
		"":        DriverTarm,
		"tarm":    DriverTarm,
		" BugSt ": DriverBugst,
		"capture": DriverCapture,
	}
	for in, want := range cases {
		got, err := ParseDriver(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDriver("usb")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	assert.Equal(t, "/dev/ttyACM0", cfg.Device)
	assert.Equal(t, DriverTarm, cfg.Driver)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, 100*time.Millisecond, cfg.ReadTimeout)
}

func TestOpenValidation(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)

	_, err = Open(&Config{})
	assert.Error(t, err)

	_, err = Open(&Config{Device: "x", Driver: Driver("nope")})
	assert.Error(t, err)
}

func TestCapturePort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")

	port, err := Open(&Config{Device: path, Driver: DriverCapture, ReadTimeout: time.Millisecond})
	require.NoError(t, err)

	n, err := port.Write([]byte{0x55, 0x55, 0xA3, 0x00, 0xA3, 0xAA, 0xAA})
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	buf := make([]byte, 16)
	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, port.Flush())
	assert.Equal(t, int64(7), port.(*CapturePort).Written())
	require.NoError(t, port.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x55, 0xA3, 0x00, 0xA3, 0xAA, 0xAA}, data)
}

func TestCapturePortBadPath(t *testing.T) {
	_, err := Open(&Config{Device: filepath.Join(t.TempDir(), "missing", "frames.bin"), Driver: DriverCapture})
	assert.Error(t, err)
}
