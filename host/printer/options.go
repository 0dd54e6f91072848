package printer

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Density is the print darkness level
type Density uint8

const (
	MinDensity     Density = 1
	MaxDensity     Density = 5
	DefaultDensity Density = 3
)

// LabelType selects the label stock
type LabelType uint8

const (
	MinLabelType     LabelType = 1
	MaxLabelType     LabelType = 3
	DefaultLabelType LabelType = 1
)

// ErrorPolicy decides what a failed exchange does to the rest of the job
type ErrorPolicy int

const (
	// Continue records the failure and carries on with the next step
	Continue ErrorPolicy = iota
	// Abort stops the session at the first failed exchange
	Abort
)

func (p ErrorPolicy) String() string {
	switch p {
	case Continue:
		return "continue"
	case Abort:
		return "abort"
	}
	return fmt.Sprintf("ErrorPolicy(%d)", int(p))
}

// ParseErrorPolicy maps "continue" or "abort" to an ErrorPolicy
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continue", "":
		return Continue, nil
	case "abort", "stop":
		return Abort, nil
	}
	return Continue, fmt.Errorf("unknown error policy %q (want continue or abort)", s)
}

// Status poll defaults
const (
	DefaultStatusPolls    = 100
	DefaultStatusInterval = 200 * time.Millisecond
)

// Options configures one print session
type Options struct {
	Density   Density
	LabelType LabelType
	OnError   ErrorPolicy

	// StatusPolls bounds the status poll loop. Zero Density, LabelType and
	// StatusPolls are replaced by their defaults in NewSession.
	StatusPolls int
	// StatusInterval spaces consecutive polls; zero polls back to back
	StatusInterval time.Duration
	// StatusDone, if set, ends the poll loop early when it returns true
	StatusDone func(Status) bool

	Logger   *zap.Logger
	Observer Observer
}

// DefaultOptions returns the settings the stock tool prints with
func DefaultOptions() Options {
	return Options{
		Density:        DefaultDensity,
		LabelType:      DefaultLabelType,
		OnError:        Continue,
		StatusPolls:    DefaultStatusPolls,
		StatusInterval: DefaultStatusInterval,
	}
}

// applyDefaults fills fields whose zero value is not a valid setting
func (o *Options) applyDefaults() {
	if o.Density == 0 {
		o.Density = DefaultDensity
	}
	if o.LabelType == 0 {
		o.LabelType = DefaultLabelType
	}
	if o.StatusPolls == 0 {
		o.StatusPolls = DefaultStatusPolls
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
}

// Validate checks the option ranges
func (o Options) Validate() error {
	if o.Density < MinDensity || o.Density > MaxDensity {
		return fmt.Errorf("density %d out of range %d..%d", o.Density, MinDensity, MaxDensity)
	}
	if o.LabelType < MinLabelType || o.LabelType > MaxLabelType {
		return fmt.Errorf("label type %d out of range %d..%d", o.LabelType, MinLabelType, MaxLabelType)
	}
	if o.OnError != Continue && o.OnError != Abort {
		return fmt.Errorf("invalid error policy %v", o.OnError)
	}
	if o.StatusPolls < 0 {
		return fmt.Errorf("status polls must not be negative, got %d", o.StatusPolls)
	}
	if o.StatusInterval < 0 {
		return fmt.Errorf("status interval must not be negative, got %v", o.StatusInterval)
	}
	return nil
}
