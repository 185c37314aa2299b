// cascaded runs the cascade engine as a daemon: it reads telemetry from
// stdin (JSONL) or a synthetic source, persists every snapshot, evaluates
// alert thresholds, and hot-reloads weight proposals from a drop
// directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelops/cascade/internal/alert"
	"github.com/kestrelops/cascade/internal/config"
	"github.com/kestrelops/cascade/internal/engine"
	"github.com/kestrelops/cascade/internal/fault"
	"github.com/kestrelops/cascade/internal/proposal"
	"github.com/kestrelops/cascade/internal/snapshot"
	"github.com/kestrelops/cascade/internal/telemetry"
)

// #region main

func main() {
	synthetic := flag.Bool("synthetic", false, "generate telemetry instead of reading stdin")
	steps := flag.Int("steps", 0, "stop after N samples (0 = run until EOF/signal)")
	interval := flag.Duration("interval", 0, "pace synthetic samples in wall time (0 = as fast as possible)")
	flag.Parse()

	if err := run(*synthetic, *steps, *interval); err != nil {
		fmt.Fprintf(os.Stderr, "cascaded: %v\n", err)
		os.Exit(1)
	}
}

func run(synthetic bool, steps int, interval time.Duration) error {
	envCfg, err := config.ParseEnv()
	if err != nil {
		return err
	}
	log := newLogger(envCfg.LogLevel)

	cfg, err := config.Load(envCfg.ConfigPath)
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	evaluator, err := alert.NewEvaluator(alert.DefaultConfig())
	if err != nil {
		return err
	}
	store, err := snapshot.NewStore(envCfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var watcher *proposal.Watcher
	if envCfg.ProposalDir != "" {
		watcher, err = proposal.NewWatcher(envCfg.ProposalDir, cfg.Burden.Weights, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			err := watcher.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		log.Info("watching weight proposals", "dir", envCfg.ProposalDir)
	}

	g.Go(func() error {
		return ingestLoop(ctx, log, eng, store, evaluator, watcher, synthetic, steps, interval, cfg.DefaultDT)
	})

	log.Info("cascaded started",
		"db", envCfg.DBPath,
		"config", envCfg.ConfigPath,
		"synthetic", synthetic,
		"critical", cfg.Phase.Critical)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("cascaded stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
	}))
}

// #endregion main

// #region ingest-loop

func ingestLoop(
	ctx context.Context,
	log *slog.Logger,
	eng *engine.Engine,
	store *snapshot.Store,
	evaluator *alert.Evaluator,
	watcher *proposal.Watcher,
	synthetic bool,
	steps int,
	interval time.Duration,
	defaultDT float64,
) error {
	var next func() (telemetry.Sample, error)
	if synthetic {
		src := telemetry.NewSynthetic(eng.Config().Seed, defaultDT)
		next = func() (telemetry.Sample, error) { return src.Next(), nil }
	} else {
		r := telemetry.NewReader(os.Stdin, defaultDT)
		next = r.Next
	}

	var ticker *time.Ticker
	if synthetic && interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for n := 0; steps == 0 || n < steps; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Apply any pending weight proposal at the step boundary.
		if watcher != nil {
			select {
			case tables := <-watcher.Tables():
				if err := eng.ApplyWeights(tables); err != nil {
					log.Warn("weight proposal rejected", "err", err)
				} else {
					log.Info("weight proposal applied")
				}
			default:
			}
		}

		sample, err := next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Warn("sample dropped", "err", err)
			continue
		}

		st, err := eng.Ingest(sample)
		if err != nil {
			var ie *fault.InputError
			if errors.As(err, &ie) {
				log.Warn("sample rejected",
					"dimension", ie.Dimension, "value", ie.Value, "lo", ie.Lo, "hi", ie.Hi)
				continue
			}
			var se *fault.SampleError
			if errors.As(err, &se) {
				log.Warn("sample malformed", "reason", se.Reason)
				continue
			}
			return err
		}

		if err := store.Append(st); err != nil {
			return err
		}

		for _, a := range evaluator.Evaluate(st) {
			rec := snapshot.AlertRecord{
				Seq:       a.Seq,
				Severity:  string(a.Severity),
				Metric:    a.Metric,
				Value:     a.Value,
				Threshold: a.Threshold,
				Message:   a.Message,
				CreatedAt: a.Timestamp,
			}
			if err := store.LogAlert(rec); err != nil {
				return err
			}
			log.Warn("alert", "severity", a.Severity, "metric", a.Metric, "value", a.Value, "seq", a.Seq)
		}

		if st.Seq%100 == 0 {
			attrs := []any{
				"seq", st.Seq,
				"z", st.Phase.Z,
				"regime", st.Phase.Regime,
				"composite", st.Burden.Composite,
			}
			if st.Signal.Risk != nil {
				attrs = append(attrs, "risk", *st.Signal.Risk)
			}
			log.Info("snapshot", attrs...)
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	return nil
}

// #endregion ingest-loop
