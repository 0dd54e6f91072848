package serial

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - go.bug.st/serial, which can change the read timeout on an open port
// - A capture file for dry runs
// - Scripted ports in tests
type Port interface {
	io.ReadWriteCloser

	// Flush discards or commits any buffered data
	Flush() error
}

// Driver selects the Port implementation
type Driver string

const (
	DriverTarm    Driver = "tarm"
	DriverBugst   Driver = "bugst"
	DriverCapture Driver = "capture"
)

// ParseDriver maps a config string to a Driver
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverTarm, DriverBugst, DriverCapture:
		return d, nil
	case "":
		return DriverTarm, nil
	}
	return "", fmt.Errorf("unknown serial driver %q (want tarm, bugst or capture)", s)
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3"), or the output file for DriverCapture
	Device string

	// Driver implementation, DriverTarm when empty
	Driver Driver

	// Baud rate (the B1 enumerates as USB CDC, which ignores this)
	Baud int

	// Read timeout of a single port read; the protocol layer applies its own
	// per-byte deadline on top of this
	ReadTimeout time.Duration
}

// Serial defaults for the B1
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

// DefaultConfig returns a default configuration for the B1
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Driver:      DriverTarm,
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
	}
}

// Open opens the port selected by cfg.Driver
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("no serial device configured")
	}

	switch cfg.Driver {
	case DriverTarm, "":
		return openNative(cfg)
	case DriverBugst:
		return openBugst(cfg)
	case DriverCapture:
		port, err := OpenCapture(cfg)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
}
