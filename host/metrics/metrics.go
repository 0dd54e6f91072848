// Package metrics records print job activity as Prometheus metrics
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"niimctl/host/printer"
	"niimctl/protocol"
)

// NewRegistry creates a private registry; the process and Go collectors are
// left out because a textfile is written once per job
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Recorder implements printer.Observer on top of Prometheus collectors
type Recorder struct {
	FramesSent     *prometheus.CounterVec // labels: cmd
	FrameBytesSent prometheus.Counter
	FramesReceived *prometheus.CounterVec // labels: cmd
	Failures       *prometheus.CounterVec // labels: step, kind
	LastJobSuccess prometheus.Gauge       // 1 when the last job finished cleanly
	LastJobSeconds prometheus.Gauge
}

var _ printer.Observer = (*Recorder)(nil)

// NewRecorder registers the job metrics with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "niimctl_frames_sent_total",
			Help: "Frames written to the printer by command.",
		}, []string{"cmd"}),
		FrameBytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "niimctl_frame_bytes_sent_total",
			Help: "Bytes written to the printer, framing included.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "niimctl_frames_received_total",
			Help: "Frames decoded from the printer by command.",
		}, []string{"cmd"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "niimctl_exchange_failures_total",
			Help: "Failed exchanges by job step and failure kind.",
		}, []string{"step", "kind"}),
		LastJobSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "niimctl_last_job_success",
			Help: "Whether the last print job completed without a failed exchange.",
		}),
		LastJobSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "niimctl_last_job_duration_seconds",
			Help: "Wall time of the last print job.",
		}),
	}
	reg.MustRegister(r.FramesSent, r.FrameBytesSent, r.FramesReceived, r.Failures, r.LastJobSuccess, r.LastJobSeconds)
	return r
}

func (r *Recorder) FrameSent(cmd protocol.Command, bytes int) {
	r.FramesSent.WithLabelValues(cmd.String()).Inc()
	r.FrameBytesSent.Add(float64(bytes))
}

func (r *Recorder) FrameReceived(cmd protocol.Command) {
	r.FramesReceived.WithLabelValues(cmd.String()).Inc()
}

func (r *Recorder) ExchangeFailed(step string, err error) {
	r.Failures.WithLabelValues(step, FailureKind(err)).Inc()
}

// JobFinished records the outcome of a job. report may be nil when the job
// never started.
func (r *Recorder) JobFinished(report *printer.Report, err error) {
	if err == nil && report != nil && report.OK() {
		r.LastJobSuccess.Set(1)
	} else {
		r.LastJobSuccess.Set(0)
	}
	if report != nil {
		r.LastJobSeconds.Set(report.Elapsed().Seconds())
	}
}

// FailureKind classifies an exchange error for the kind label
func FailureKind(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTimeout):
		return "timeout"
	case errors.Is(err, protocol.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, protocol.ErrFraming):
		return "framing"
	case errors.Is(err, printer.ErrRejected):
		return "rejected"
	case errors.Is(err, printer.ErrProtocolSequence):
		return "sequence"
	}
	return "other"
}

// WriteTextfile writes every metric in g to path in the text exposition
// format, for the node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
