// Command presence reads detector output as JSON lines on stdin and writes
// each line back annotated with loitering or zone-crossing results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/banshee-data/presence.report/internal/config"
	"github.com/banshee-data/presence.report/internal/counting"
	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/loitering"
	"github.com/banshee-data/presence.report/internal/monitoring"
	"github.com/banshee-data/presence.report/internal/pipeline"
	"github.com/banshee-data/presence.report/internal/timeutil"
	"github.com/banshee-data/presence.report/internal/version"
)

const (
	modeLoitering = "loitering"
	modeCounting  = "counting"
)

var (
	mode        = flag.String("mode", modeLoitering, "behaviour to evaluate: loitering or counting")
	configPath  = flag.String("config", "", "path to a tuning config JSON file (defaults apply when empty)")
	logLevel    = flag.String("log-level", "info", "log level: error, warn, info, debug or trace")
	metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	maxFPS      = flag.Float64("max-fps", 0, "evaluate at most this many frames per second of stream time (0 disables)")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := config.DefaultTuningConfig()
	if *configPath != "" {
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		logger.Infof("loaded config %s", *configPath)
	}

	evaluator, err := buildEvaluator(*mode, cfg)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	metrics := monitoring.NewMetrics()
	if *metricsAddr != "" {
		go func() {
			if err := metrics.StartServer(*metricsAddr); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	gate := pipeline.Chain{&pipeline.EveryNth{N: cfg.GetFrameSkip()}}
	if *maxFPS > 0 {
		gate = append(gate, pipeline.NewRateGate(*maxFPS))
	}

	replay := &pipeline.Replay{
		Runner: &pipeline.Runner{
			Evaluator: evaluator,
			Gate:      gate,
			Metrics:   metrics,
		},
		Assembler: detection.Assembler{
			ConfidenceThreshold: cfg.GetConfidenceThreshold(),
			ObjectClass:         cfg.GetObjectClass(),
		},
		Clock: timeutil.NewStreamClock(timeutil.RealClock{}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	sum, err := replay.Run(ctx, os.Stdin, os.Stdout)
	if replayFailed(err) {
		logger.Fatalf("replay: %v", err)
	}
	logger.Info("done",
		"session", evaluator.SessionID(),
		"lines", sum.Lines,
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"rejected", sum.Rejected,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

// replayFailed reports whether err from a replay should end the process
// with a failure. Interruption by signal is a clean stop.
func replayFailed(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// buildEvaluator constructs the session for mode from cfg.
func buildEvaluator(mode string, cfg *config.TuningConfig) (pipeline.Evaluator, error) {
	switch mode {
	case modeLoitering:
		s, err := loitering.NewSession(loitering.ConfigFromTuning(cfg))
		if err != nil {
			return nil, fmt.Errorf("loitering session: %w", err)
		}
		return pipeline.Loitering(s), nil
	case modeCounting:
		s, err := counting.NewSession(counting.ConfigFromTuning(cfg))
		if err != nil {
			return nil, fmt.Errorf("counting session: %w", err)
		}
		return pipeline.Counting(s), nil
	default:
		return nil, fmt.Errorf("unknown mode %q (want %s or %s)", mode, modeLoitering, modeCounting)
	}
}

// newLogger builds the CLI logger and routes the monitoring streams
// through it. "trace" enables debug output plus the per-frame stream.
func newLogger(level string) (*log.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	trace := level == "trace"
	if trace {
		level = "debug"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid -log-level: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
		Prefix:          "presence",
	})

	var traceFn monitoring.LogFunc
	if trace {
		traceFn = logger.WithPrefix("presence/trace").Debugf
	}
	monitoring.SetLoggers(logger.Infof, logger.Debugf, traceFn)
	return logger, nil
}
