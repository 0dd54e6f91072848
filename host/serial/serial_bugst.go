package serial

import (
	"fmt"

	bugst "go.bug.st/serial"
)

// BugstPort wraps a go.bug.st/serial port
type BugstPort struct {
	port bugst.Port
	cfg  *Config
}

// openBugst opens an 8N1 port through go.bug.st/serial.
// A read that times out returns (0, nil).
func openBugst(cfg *Config) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}

	port, err := bugst.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
		}
	}

	return &BugstPort{
		port: port,
		cfg:  cfg,
	}, nil
}

func (p *BugstPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *BugstPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *BugstPort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush drops stale input so the next reply is read from a clean buffer
func (p *BugstPort) Flush() error {
	return p.port.ResetInputBuffer()
}
