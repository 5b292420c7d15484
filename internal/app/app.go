package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Kanthalon/tassled-cap/internal/capture"
	"github.com/Kanthalon/tassled-cap/internal/imagery"
	"github.com/Kanthalon/tassled-cap/internal/metrics"
	"github.com/Kanthalon/tassled-cap/internal/reference"
	"github.com/Kanthalon/tassled-cap/internal/render"
	"github.com/Kanthalon/tassled-cap/internal/report"
	"github.com/Kanthalon/tassled-cap/pkg/change"
	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options supplies the collaborators of a run. Nil fields get the defaults
// for the configured run: TIFF bands, MTL metadata, ENVI references, the
// configured capture mode, PNG files under output_dir and stdout.
type Options struct {
	Images      imagery.ImageSource
	Calibration imagery.CalibrationSource
	Reference   reference.Reader
	Capturer    capture.Capturer
	Sink        render.Sink
	Metrics     *metrics.Metrics
	Out         io.Writer
	In          io.Reader
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	opts           Options
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	Summaries []classify.Summary
	// Aborted maps a skipped period to the reason it was skipped.
	Aborted map[string]error
	Changes []change.Change
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger, opts Options) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
		opts:           opts,
	}
}

// Run processes every configured period and reports the change between
// them. SIGINT and SIGTERM cancel the run.
func (a *App) Run(ctx context.Context) (*Result, error) {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.logger.Info("shutdown signal received, cancelling run...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	opts, err := a.resolveOptions(ctx, &wg, cfg, logger)
	if err != nil {
		return nil, err
	}

	p, err := newPipeline(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	logger.Infow("run started", "periods", len(cfg.Periods), "classes", len(cfg.Classes), "abort_policy", cfg.Run.AbortPolicy)
	result, err := p.run(ctx)
	if result != nil {
		result.RunID = runID
	}

	// Stop the capture server, if any, before returning
	cancel()
	wg.Wait()

	if err != nil {
		return result, err
	}
	logger.Infow("run complete", "summaries", len(result.Summaries), "aborted", len(result.Aborted))
	return result, nil
}

func (a *App) resolveOptions(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, logger *zap.SugaredLogger) (Options, error) {
	opts := a.opts
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Images == nil {
		opts.Images = imagery.NewTIFFSource()
	}
	if opts.Calibration == nil {
		opts.Calibration = imagery.NewMTLSource()
	}
	if opts.Reference == nil {
		opts.Reference = reference.NewENVIReader()
	}
	if opts.Sink == nil {
		opts.Sink = render.NewFileSink(cfg.Run.OutputDir)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	if opts.Capturer == nil {
		switch cfg.Capture.Mode {
		case config.CaptureTerminal:
			opts.Capturer = capture.NewTerminalCapturer(opts.In, opts.Out)
		case config.CaptureHTTP:
			h, err := capture.NewHTTPCapturer(ctx, wg, cfg.Capture, opts.Metrics, logger)
			if err != nil {
				return opts, err
			}
			if err := h.Start(); err != nil {
				return opts, err
			}
			opts.Capturer = h
		default:
			opts.Capturer = capture.NewStaticCapturer(cfg.Periods, cfg.Classes)
		}
	}
	return opts, nil
}

// abortsPeriod reports whether err only ends the current period under policy.
func abortsPeriod(err error, policy string) (*classify.MandatoryCategoryEmptyError, bool) {
	var mce *classify.MandatoryCategoryEmptyError
	if errors.As(err, &mce) && policy == config.AbortPeriod {
		return mce, true
	}
	return nil, false
}

func (p *pipeline) run(ctx context.Context) (*Result, error) {
	result := &Result{Aborted: make(map[string]error)}

	for _, period := range p.cfg.Periods {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		summary, err := p.processPeriod(ctx, period)
		p.metrics.ObserveStage("period", start)
		if err != nil {
			if mce, ok := abortsPeriod(err, p.cfg.Run.AbortPolicy); ok {
				p.logger.Warnw("period aborted", "period", period.Label, "category", mce.Category)
				fmt.Fprintf(p.out, "No %s cover selected, ending processing of %s.\n\n", mce.Category, period.Label)
				p.metrics.PeriodsAborted.WithLabelValues(period.Label, "mandatory_category_empty").Inc()
				result.Aborted[period.Label] = err
				continue
			}
			p.metrics.PeriodsAborted.WithLabelValues(period.Label, "error").Inc()
			return result, fmt.Errorf("period %s: %w", period.Label, err)
		}

		result.Summaries = append(result.Summaries, summary)
		p.metrics.PeriodsProcessed.WithLabelValues(period.Label).Inc()
	}

	if len(result.Summaries) < 2 {
		p.logger.Infow("fewer than two periods completed; no change report", "completed", len(result.Summaries))
		return result, nil
	}

	changes, err := change.Series(result.Summaries, p.cfg.Run.ChangeCategories)
	if err != nil {
		return result, fmt.Errorf("error computing change: %w", err)
	}
	result.Changes = changes
	if err := report.WriteChanges(p.out, changes); err != nil {
		return result, fmt.Errorf("error writing change report: %w", err)
	}
	return result, nil
}
