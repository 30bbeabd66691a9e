// Package profiler runs the sampling loop: fetch active statements,
// normalize them, feed the summarizer and decide whether to report.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pgstatprof/pkg/activity"
	"pgstatprof/pkg/metrics"
	"pgstatprof/pkg/normalize"
	"pgstatprof/pkg/report"
	"pgstatprof/pkg/summary"
)

// Config controls sampling and reporting. It is fixed for the life of a run.
type Config struct {
	// Interval is the pause between samples, in seconds.
	Interval float64
	// Delay is the number of samples per report.
	Delay int
	// Top is the number of shapes per report.
	Top int
	// Diff suppresses reports whose change signature matches the last one.
	Diff bool
	// Normalize replaces literals before counting.
	Normalize bool
}

// DefaultConfig returns the defaults used by the command line.
func DefaultConfig() Config {
	return Config{
		Interval:  1.0,
		Delay:     1,
		Top:       10,
		Normalize: true,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Interval < minSleep.Seconds() {
		return fmt.Errorf("interval must be at least %v seconds, got %v", minSleep.Seconds(), c.Interval)
	}
	if c.Delay < 1 {
		return fmt.Errorf("delay must be at least 1, got %d", c.Delay)
	}
	if c.Top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", c.Top)
	}
	return nil
}

// minSleep is the shortest pause between samples.
const minSleep = time.Millisecond

// SleepDuration converts Interval to whole milliseconds, never less than one.
func (c Config) SleepDuration() time.Duration {
	d := time.Duration(c.Interval*1000) * time.Millisecond
	if d < minSleep {
		return minSleep
	}
	return d
}

// Profiler owns the summarizer state. It is not safe for concurrent use;
// reports handed to the reporter are independent copies.
type Profiler struct {
	source     activity.Source
	summarizer summary.Summarizer
	reporter   report.Reporter
	metrics    *metrics.Collector
	config     Config

	ticks   int
	lastSig int

	now func() time.Time
}

// New creates a profiler. metrics may be nil.
func New(source activity.Source, summarizer summary.Summarizer, reporter report.Reporter, m *metrics.Collector, config Config) *Profiler {
	return &Profiler{
		source:     source,
		summarizer: summarizer,
		reporter:   reporter,
		metrics:    m,
		config:     config,
		now:        time.Now,
	}
}

// Run samples until ctx is cancelled or a tick fails. Failures are not
// retried.
func (p *Profiler) Run(ctx context.Context) error {
	slog.Info("profiler started",
		"interval", p.config.SleepDuration(),
		"delay", p.config.Delay,
		"top", p.config.Top,
		"diff", p.config.Diff,
		"normalize", p.config.Normalize,
		"summarizer", fmt.Sprintf("%T", p.summarizer),
	)

	for {
		if _, err := p.Tick(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if err := sleep(ctx, p.config.SleepDuration()); err != nil {
			return err
		}
	}
}

// Tick runs one sample and reports whether a report was emitted.
func (p *Profiler) Tick(ctx context.Context) (bool, error) {
	started := time.Now()
	statements, err := p.source.ListActive(ctx)
	if p.metrics != nil {
		p.metrics.ObserveFetch(started, len(statements), err)
	}
	if err != nil {
		return false, fmt.Errorf("failed to list active statements: %w", err)
	}

	texts := activity.Texts(statements)
	if p.config.Normalize {
		for i, text := range texts {
			texts[i] = normalize.Query(text)
		}
	}

	sig := p.summarizer.Update(texts)
	if p.metrics != nil {
		p.metrics.Ticks.Inc()
		p.metrics.ChangeSignature.Set(float64(sig))
	}

	p.ticks++
	if p.ticks < p.config.Delay {
		return false, nil
	}
	p.ticks = 0

	// Same signature is taken to mean nothing changed. It can be wrong
	// both ways; the full summary is never compared.
	if p.config.Diff && sig == p.lastSig {
		slog.Debug("report suppressed, signature unchanged", "signature", sig)
		return false, nil
	}

	r := report.Report{
		Time:      p.now(),
		Signature: sig,
		Entries:   p.summarizer.Top(p.config.Top),
	}
	if err := p.reporter.Emit(r); err != nil {
		return false, fmt.Errorf("failed to emit report: %w", err)
	}
	p.lastSig = sig
	if p.metrics != nil {
		p.metrics.Reports.Inc()
	}
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsInterrupted reports whether err only means the run was stopped from outside.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
