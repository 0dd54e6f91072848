// Package printer drives a NiimBot B1 through one print job
package printer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"niimctl/bitmap"
	"niimctl/protocol"
)

var (
	// ErrProtocolSequence reports a reply the session cannot make sense of
	ErrProtocolSequence = errors.New("unexpected reply")
	// ErrRejected reports a reply whose status byte is zero
	ErrRejected = errors.New("printer rejected command")
)

// pageEndHandshakeFrames is the number of frames the printer emits after the
// row stream, before it will accept the page end command
const pageEndHandshakeFrames = 2

// pagesPerJob is the page count announced in the print start command
const pagesPerJob = 1

// Transport moves frames to and from the printer
type Transport interface {
	Send(cmd protocol.Command, payload []byte) error
	Receive() (protocol.Packet, error)
}

// Observer is told about every frame and every failed exchange
type Observer interface {
	FrameSent(cmd protocol.Command, bytes int)
	FrameReceived(cmd protocol.Command)
	ExchangeFailed(step string, err error)
}

type nopObserver struct{}

func (nopObserver) FrameSent(protocol.Command, int) {}
func (nopObserver) FrameReceived(protocol.Command) {}
func (nopObserver) ExchangeFailed(string, error) {}

// Session runs one print job over a Transport.
// A Session is not safe for concurrent use.
type Session struct {
	t    Transport
	opts Options
	log  *zap.Logger
	obs  Observer

	report *Report
}

// NewSession creates a session. Zero Density, LabelType and StatusPolls take
// their defaults.
func NewSession(t Transport, opts Options) *Session {
	opts.applyDefaults()
	return &Session{
		t:    t,
		opts: opts,
		log:  opts.Logger,
		obs:  opts.Observer,
	}
}

// Print sends bm as a single-page job. The returned report is non-nil
// whenever the job got as far as its first frame, including on error.
func (s *Session) Print(ctx context.Context, bm *bitmap.Bitmap) (*Report, error) {
	if bm == nil {
		return nil, errors.New("nil bitmap")
	}
	if err := s.opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	s.report = &Report{
		JobID:   uuid.NewString(),
		Started: time.Now(),
	}
	log := s.opts.Logger.With(zap.String("job", s.report.JobID))
	s.log = log

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"setup", s.setup},
		{"print_start", s.printStart},
		{"page", func(ctx context.Context) error { return s.page(ctx, bm) }},
		{"status_poll", s.pollStatus},
		{"print_end", s.printEnd},
	}

	log.Info("print job started",
		zap.Uint8("density", uint8(s.opts.Density)),
		zap.Uint8("label_type", uint8(s.opts.LabelType)),
		zap.Stringer("on_error", s.opts.OnError))

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			s.report.Finished = time.Now()
			log.Error("print job stopped", zap.String("step", step.name), zap.Error(err))
			return s.report, err
		}
	}

	s.report.Finished = time.Now()
	s.report.Completed = true
	log.Info("print job finished",
		zap.Int("pixel_rows", s.report.PixelRows),
		zap.Int("blank_runs", s.report.BlankRuns),
		zap.Int("failures", len(s.report.Failures)),
		zap.Duration("elapsed", s.report.Elapsed()))
	return s.report, nil
}

func (s *Session) setup(ctx context.Context) error {
	if err := s.request(ctx, "set_density", protocol.CmdSetDensity, setDensity(s.opts.Density)); err != nil {
		return err
	}
	return s.request(ctx, "set_label_type", protocol.CmdSetLabelType, setLabelType(s.opts.LabelType))
}

func (s *Session) printStart(ctx context.Context) error {
	return s.request(ctx, "print_start", protocol.CmdPrintStart, printStart(pagesPerJob))
}

func (s *Session) page(ctx context.Context, bm *bitmap.Bitmap) error {
	if err := s.request(ctx, "page_start", protocol.CmdPageStart, pageStart()); err != nil {
		return err
	}
	size := setPageSize(uint16(bm.Height()), uint16(bm.Width()), 1)
	if err := s.request(ctx, "page_size", protocol.CmdSetPageSize, size); err != nil {
		return err
	}
	if err := s.streamRows(ctx, bm); err != nil {
		return err
	}
	if err := s.awaitPageEndHandshake(ctx); err != nil {
		return err
	}
	return s.request(ctx, "page_end", protocol.CmdPageEnd, pageEnd())
}

// streamRows sends the compressed row stream. Row frames get no reply.
func (s *Session) streamRows(ctx context.Context, bm *bitmap.Bitmap) error {
	for rec := range bitmap.Compress(bm) {
		switch r := rec.(type) {
		case bitmap.BlankRun:
			if err := s.send(ctx, protocol.CmdBlankRows, blankRows(r)); err != nil {
				return err
			}
			s.report.BlankRuns++
			s.report.RowsSent += r.Count
		case bitmap.PixelRow:
			if err := s.send(ctx, protocol.CmdPixelRow, pixelRow(r)); err != nil {
				return err
			}
			s.report.PixelRows++
			s.report.RowsSent++
		}
	}
	return nil
}

// awaitPageEndHandshake consumes the frames the printer sends once it has
// taken the rows. Their content is not interpreted.
func (s *Session) awaitPageEndHandshake(ctx context.Context) error {
	for i := 0; i < pageEndHandshakeFrames; i++ {
		pkt, ok, err := s.await(ctx, "page_end_handshake")
		if err != nil {
			return err
		}
		if ok {
			s.log.Debug("handshake frame", zap.Int("index", i), zap.Stringer("packet", pkt))
		}
	}
	return nil
}

func (s *Session) pollStatus(ctx context.Context) error {
	limit := rate.Inf
	if s.opts.StatusInterval > 0 {
		limit = rate.Every(s.opts.StatusInterval)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i := 0; i < s.opts.StatusPolls; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.send(ctx, protocol.CmdStatusPoll, statusPoll()); err != nil {
			return err
		}
		pkt, ok, err := s.await(ctx, "status_poll")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		st, err := ParseStatus(pkt.Payload)
		if err != nil {
			if err := s.fail("status_poll", err); err != nil {
				return err
			}
			continue
		}
		s.report.Statuses = append(s.report.Statuses, st)
		s.log.Info("status", zap.Int("poll", i+1), zap.Stringer("status", st))

		if s.opts.StatusDone != nil && s.opts.StatusDone(st) {
			s.log.Debug("status reports done", zap.Int("polls", i+1))
			break
		}
	}
	return nil
}

// printEnd closes the job. The printer does not answer it.
func (s *Session) printEnd(ctx context.Context) error {
	return s.send(ctx, protocol.CmdPrintEnd, printEnd())
}

// request sends cmd and waits for its one-frame reply. A reply whose first
// payload byte is zero counts as a rejection.
func (s *Session) request(ctx context.Context, step string, cmd protocol.Command, payload []byte) error {
	if err := s.send(ctx, cmd, payload); err != nil {
		return err
	}
	pkt, ok, err := s.await(ctx, step)
	if err != nil || !ok {
		return err
	}
	if len(pkt.Payload) > 0 && pkt.Payload[0] == 0 {
		s.report.Rejected = append(s.report.Rejected, cmd)
		return s.fail(step, fmt.Errorf("%w: %s", ErrRejected, cmd))
	}
	return nil
}

// send writes one frame. Write failures are always fatal.
func (s *Session) send(ctx context.Context, cmd protocol.Command, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ce := s.log.Check(zap.DebugLevel, "send"); ce != nil {
		ce.Write(zap.Stringer("cmd", cmd), zap.String("payload", hex.EncodeToString(payload)))
	}
	if err := s.t.Send(cmd, payload); err != nil {
		return err
	}
	s.report.FramesSent++
	s.obs.FrameSent(cmd, len(payload)+protocol.FrameOverhead)
	return nil
}

// await reads one reply. ok is false when the exchange failed and the error
// policy allows the session to go on.
func (s *Session) await(ctx context.Context, step string) (pkt protocol.Packet, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return protocol.Packet{}, false, err
	}
	pkt, err = s.t.Receive()
	if err != nil {
		if !isExchangeError(err) {
			return protocol.Packet{}, false, fmt.Errorf("%s: %w", step, err)
		}
		return protocol.Packet{}, false, s.fail(step, err)
	}
	s.obs.FrameReceived(pkt.Cmd)
	s.log.Debug("reply", zap.String("step", step), zap.Stringer("packet", pkt))
	return pkt, true, nil
}

// fail records a failed exchange and applies the error policy.
// It returns nil when the job carries on.
func (s *Session) fail(step string, err error) error {
	s.report.Failures = append(s.report.Failures, StepError{Step: step, Err: err})
	s.obs.ExchangeFailed(step, err)
	s.log.Warn("exchange failed", zap.String("step", step), zap.Error(err))
	if s.opts.OnError == Abort {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// isExchangeError reports whether err came from a bad or missing reply
// rather than from the port itself
func isExchangeError(err error) bool {
	return errors.Is(err, protocol.ErrTimeout) ||
		errors.Is(err, protocol.ErrFraming) ||
		errors.Is(err, protocol.ErrChecksumMismatch)
}
