package serial

import (
	"fmt"
	"os"
	"time"
)

// CapturePort records everything written to it in a file and never returns
// any input. It stands in for the printer during a dry run.
type CapturePort struct {
	file        *os.File
	readTimeout time.Duration
	written     int64
}

// OpenCapture creates (or truncates) cfg.Device and returns a CapturePort
func OpenCapture(cfg *Config) (*CapturePort, error) {
	f, err := os.Create(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file %s: %w", cfg.Device, err)
	}
	return &CapturePort{file: f, readTimeout: cfg.ReadTimeout}, nil
}

// Read waits out the read timeout and reports no data
func (p *CapturePort) Read(b []byte) (int, error) {
	if p.readTimeout > 0 {
		time.Sleep(p.readTimeout)
	}
	return 0, nil
}

func (p *CapturePort) Write(b []byte) (int, error) {
	n, err := p.file.Write(b)
	p.written += int64(n)
	return n, err
}

// Written returns the number of bytes captured so far
func (p *CapturePort) Written() int64 {
	return p.written
}

func (p *CapturePort) Flush() error {
	return p.file.Sync()
}

func (p *CapturePort) Close() error {
	_ = p.file.Sync()
	return p.file.Close()
}
