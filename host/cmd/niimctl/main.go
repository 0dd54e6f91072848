package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"niimctl/bitmap"
	"niimctl/host/config"
	"niimctl/host/imageload"
	"niimctl/host/logging"
	"niimctl/host/metrics"
	"niimctl/host/printer"
	"niimctl/protocol"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("niimctl", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "Print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "niimctl - print a 400x240 image on a NiimBot B1")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: niimctl -p PORT -i IMAGE [flags]")
		fmt.Fprintln(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Println("niimctl", protocol.Version)
		return 0
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'niimctl --help' for usage.")
		return 1
	}

	log, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// Bad images are rejected before the port is touched
	img, err := imageload.Load(cfg.Job.Image, imageload.Options{Dither: cfg.Job.Dither})
	if err != nil {
		log.Error("cannot load image", zap.Error(err))
		return 1
	}
	bm, err := bitmap.Encode(img)
	if err != nil {
		log.Error("cannot print image", zap.String("image", cfg.Job.Image), zap.Error(err))
		return 1
	}

	opts, err := cfg.PrintOptions()
	if err != nil {
		log.Error("invalid job settings", zap.Error(err))
		return 1
	}
	reg := metrics.NewRegistry()
	rec := metrics.NewRecorder(reg)
	opts.Logger = log
	opts.Observer = rec

	serialCfg, err := cfg.SerialConfig()
	if err != nil {
		log.Error("invalid serial settings", zap.Error(err))
		return 1
	}

	p := printer.NewPrinter(log)
	p.SetResponseTimeout(cfg.ResponseTimeout())
	if err := p.ConnectWithConfig(serialCfg); err != nil {
		log.Error("cannot connect to printer", zap.String("port", serialCfg.Device), zap.Error(err))
		return 1
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Print(ctx, bm, opts)
	rec.JobFinished(report, err)

	if cfg.Metrics.Textfile != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); werr != nil {
			log.Warn("metrics not written", zap.Error(werr))
		}
	}

	if err != nil {
		log.Error("print failed", zap.Error(err))
		return 1
	}

	if cfg.DryRun.Enable {
		log.Info("dry run written", zap.String("file", cfg.DryRun.Output), zap.Int("frames", report.FramesSent))
	}
	if !report.OK() {
		log.Warn("job finished with failed exchanges",
			zap.Int("failures", len(report.Failures)),
			zap.Int("rejected", len(report.Rejected)))
	}
	return 0
}
