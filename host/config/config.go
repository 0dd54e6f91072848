// Package config loads niimctl settings from flags, environment and an
// optional config file
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"niimctl/host/printer"
	"niimctl/host/serial"
)

// EnvPrefix prefixes every environment override, e.g. NIIMCTL_PRINTER_PORT
const EnvPrefix = "NIIMCTL"

// PrinterConfig selects and tunes the serial link
type PrinterConfig struct {
	Port            string        `mapstructure:"port"`
	Driver          string        `mapstructure:"driver"`
	Baud            int           `mapstructure:"baud"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	ResponseTimeout time.Duration `mapstructure:"timeout"`
}

// JobConfig describes the label to print
type JobConfig struct {
	Image          string        `mapstructure:"image"`
	Dither         bool          `mapstructure:"dither"`
	Density        int           `mapstructure:"density"`
	LabelType      int           `mapstructure:"labelType"`
	OnError        string        `mapstructure:"onError"`
	StatusPolls    int           `mapstructure:"statusPolls"`
	StatusInterval time.Duration `mapstructure:"statusInterval"`
}

// DryRunConfig sends the job to a file instead of a printer
type DryRunConfig struct {
	Enable bool   `mapstructure:"enable"`
	Output string `mapstructure:"output"`
}

// LumberjackConfig controls the rolling log file
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig sets log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig names the node exporter textfile to write after a job
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Config is the top-level configuration
type Config struct {
	Printer PrinterConfig `mapstructure:"printer"`
	Job     JobConfig     `mapstructure:"job"`
	DryRun  DryRunConfig  `mapstructure:"dryRun"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":             "printer.port",
	"driver":           "printer.driver",
	"baud":             "printer.baud",
	"timeout":          "printer.timeout",
	"image":            "job.image",
	"dither":           "job.dither",
	"density":          "job.density",
	"label-type":       "job.labelType",
	"on-error":         "job.onError",
	"status-polls":     "job.statusPolls",
	"status-interval":  "job.statusInterval",
	"dry-run":          "dryRun.enable",
	"dry-run-output":   "dryRun.output",
	"metrics-textfile": "metrics.textfile",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"log-file":         "logging.file.filename",
}

// RegisterFlags adds the command line flags Load understands to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "Serial port the printer is attached to")
	fs.StringP("image", "i", "", "Image to print (exactly 400x240 pixels)")
	fs.BoolP("verbose", "v", false, "Log every frame (same as --log-level debug)")
	fs.StringP("config", "c", "", "Config file (default $"+EnvPrefix+"_CONFIG or ./niimctl.yaml)")

	fs.String("driver", string(serial.DriverTarm), "Serial driver: tarm or bugst")
	fs.Int("baud", serial.DefaultBaud, "Baud rate")
	fs.Duration("timeout", 1*time.Second, "Per-byte reply timeout")

	fs.Bool("dither", false, "Dither the image to black and white before printing")
	fs.Int("density", int(printer.DefaultDensity), "Print density, 1 to 5")
	fs.Int("label-type", int(printer.DefaultLabelType), "Label type, 1 to 3")
	fs.String("on-error", printer.Continue.String(), "What a failed exchange does: continue or abort")
	fs.Int("status-polls", printer.DefaultStatusPolls, "Maximum number of status polls after the page, at least 1")
	fs.Duration("status-interval", printer.DefaultStatusInterval, "Spacing between status polls")

	fs.Bool("dry-run", false, "Write the frames to a file instead of a printer")
	fs.String("dry-run-output", "niimctl-dryrun.bin", "File the dry run writes to")
	fs.String("metrics-textfile", "", "Write job metrics to this Prometheus textfile")

	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "console", "Log format: console or json")
	fs.String("log-file", "", "Also log to this rolling file")
}

// Load merges defaults, the config file, the environment and the flags in fs,
// in increasing order of precedence. fs must already be parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	path := ""
	if f := fs.Lookup("config"); f != nil {
		path = f.Value.String()
	}
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("niimctl")
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine; flags and environment suffice
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if verbose, err := fs.GetBool("verbose"); err == nil && verbose {
		cfg.Logging.Level = "debug"
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("printer.port", "")
	v.SetDefault("printer.driver", string(serial.DriverTarm))
	v.SetDefault("printer.baud", serial.DefaultBaud)
	v.SetDefault("printer.readTimeout", serial.DefaultReadTimeout)
	v.SetDefault("printer.timeout", "1s")

	v.SetDefault("job.image", "")
	v.SetDefault("job.dither", false)
	v.SetDefault("job.density", int(printer.DefaultDensity))
	v.SetDefault("job.labelType", int(printer.DefaultLabelType))
	v.SetDefault("job.onError", printer.Continue.String())
	v.SetDefault("job.statusPolls", printer.DefaultStatusPolls)
	v.SetDefault("job.statusInterval", printer.DefaultStatusInterval)

	v.SetDefault("dryRun.enable", false)
	v.SetDefault("dryRun.output", "niimctl-dryrun.bin")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 28)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.textfile", "")
}

// Validate checks that a job can be run with this configuration
func (c *Config) Validate() error {
	if c.Job.Image == "" {
		return errors.New("no image given")
	}
	if c.Printer.Port == "" && !c.DryRun.Enable {
		return errors.New("no serial port given")
	}
	if c.DryRun.Enable && c.DryRun.Output == "" {
		return errors.New("dry run needs an output file")
	}
	if _, err := serial.ParseDriver(c.Printer.Driver); err != nil {
		return err
	}
	if c.Printer.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Printer.Baud)
	}
	if c.Printer.ResponseTimeout <= 0 {
		return fmt.Errorf("reply timeout must be positive, got %v", c.Printer.ResponseTimeout)
	}
	_, err := c.PrintOptions()
	return err
}

// SerialConfig returns the serial settings. A dry run swaps the port for
// the capture file.
func (c *Config) SerialConfig() (*serial.Config, error) {
	if c.DryRun.Enable {
		return &serial.Config{
			Device:      c.DryRun.Output,
			Driver:      serial.DriverCapture,
			Baud:        c.Printer.Baud,
			ReadTimeout: time.Millisecond,
		}, nil
	}

	driver, err := serial.ParseDriver(c.Printer.Driver)
	if err != nil {
		return nil, err
	}
	return &serial.Config{
		Device:      c.Printer.Port,
		Driver:      driver,
		Baud:        c.Printer.Baud,
		ReadTimeout: c.Printer.ReadTimeout,
	}, nil
}

// dryRunTimeout replaces the reply timeout when nothing will ever answer
const dryRunTimeout = 5 * time.Millisecond

// ResponseTimeout is the per-byte reply timeout for this run
func (c *Config) ResponseTimeout() time.Duration {
	if c.DryRun.Enable {
		return dryRunTimeout
	}
	return c.Printer.ResponseTimeout
}

// PrintOptions converts the job section into session options.
// Logger and Observer are left for the caller.
func (c *Config) PrintOptions() (printer.Options, error) {
	if c.Job.Density < 0 || c.Job.Density > 255 || c.Job.LabelType < 0 || c.Job.LabelType > 255 {
		return printer.Options{}, fmt.Errorf("density %d or label type %d out of range", c.Job.Density, c.Job.LabelType)
	}
	// Zero is reserved for "use the default" in printer.Options
	if c.Job.StatusPolls < 1 {
		return printer.Options{}, fmt.Errorf("status polls must be at least 1, got %d", c.Job.StatusPolls)
	}
	policy, err := printer.ParseErrorPolicy(c.Job.OnError)
	if err != nil {
		return printer.Options{}, err
	}
	opts := printer.Options{
		Density:        printer.Density(c.Job.Density),
		LabelType:      printer.LabelType(c.Job.LabelType),
		OnError:        policy,
		StatusPolls:    c.Job.StatusPolls,
		StatusInterval: c.Job.StatusInterval,
	}
	if c.DryRun.Enable {
		opts.StatusInterval = 0
	}
	if err := opts.Validate(); err != nil {
		return printer.Options{}, err
	}
	return opts, nil
}
