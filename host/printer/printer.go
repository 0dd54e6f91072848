package printer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"niimctl/bitmap"
	"niimctl/host/serial"
	"niimctl/protocol"
)

// Printer is a connection to a B1 label printer
type Printer struct {
	// Transport layer
	transport *protocol.HostTransport

	// Serial port
	port serial.Port

	responseTimeout time.Duration
	log             *zap.Logger

	// Connection state
	connected bool
}

// NewPrinter creates a new Printer instance (not yet connected)
func NewPrinter(log *zap.Logger) *Printer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Printer{
		responseTimeout: protocol.DefaultResponseTimeout,
		log:             log,
	}
}

// Connect connects to a printer with the default serial settings
func (p *Printer) Connect(device string) error {
	return p.ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig connects to a printer with a custom serial config
func (p *Printer) ConnectWithConfig(cfg *serial.Config) error {
	if p.connected {
		return errors.New("already connected")
	}
	port, err := serial.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	p.log.Info("serial port open",
		zap.String("device", cfg.Device),
		zap.String("driver", string(cfg.Driver)),
		zap.Int("baud", cfg.Baud))
	return p.ConnectPort(port)
}

// ConnectPort attaches an already open port
func (p *Printer) ConnectPort(port serial.Port) error {
	if p.connected {
		return errors.New("already connected")
	}
	// Drop whatever the printer sent before we were listening
	if err := port.Flush(); err != nil {
		p.log.Warn("failed to flush serial input", zap.Error(err))
	}

	p.port = port
	p.transport = protocol.NewHostTransport(port)
	p.transport.SetTimeout(p.responseTimeout)
	p.connected = true
	return nil
}

// SetResponseTimeout bounds the wait for each reply byte
func (p *Printer) SetResponseTimeout(d time.Duration) {
	p.responseTimeout = d
	if p.transport != nil {
		p.transport.SetTimeout(d)
	}
}

// IsConnected returns true if connected to a printer
func (p *Printer) IsConnected() bool {
	return p.connected
}

// Print runs one job with opts. opts.Logger defaults to the printer's logger.
func (p *Printer) Print(ctx context.Context, bm *bitmap.Bitmap, opts Options) (*Report, error) {
	if !p.connected {
		return nil, errors.New("not connected to printer")
	}
	if opts.Logger == nil {
		opts.Logger = p.log
	}
	if stale := p.transport.Reset(); stale > 0 {
		p.log.Warn("discarded stale input", zap.Int("bytes", stale))
	}
	return NewSession(p.transport, opts).Print(ctx, bm)
}

// Close closes the connection to the printer
func (p *Printer) Close() error {
	if !p.connected {
		return nil
	}
	p.connected = false
	if err := p.transport.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
