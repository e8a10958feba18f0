package app

import (
	"context"
	"errors"
	"fmt"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"trendwatch/internal/alerting"
	"trendwatch/internal/config"
	"trendwatch/internal/fetcher"
	"trendwatch/internal/scheduler"
	"trendwatch/internal/service"
	"trendwatch/internal/signal"
	"trendwatch/internal/state"
	"trendwatch/internal/storage"
	"trendwatch/internal/summarizer"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// RunOptions configure the run command.
type RunOptions struct {
	Watch  bool
	DryRun bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting an indicator's history.
type ExportOptions struct {
	IndicatorID string
	CSVPath     string
	PNGPath     string
}

// SimulateOptions drive the signal engine with synthetic values.
type SimulateOptions struct {
	Name      string
	Value     float64
	History   []float64
	NPeriods  int
	Threshold float64
}

func (a *App) newFetcher() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:     a.Config.Fetch.BaseURL,
		Timeout:     a.Config.Fetch.Timeout,
		Retries:     a.Config.Fetch.Retries,
		BackoffBase: time.Duration(a.Config.Fetch.BackoffBase * float64(time.Second)),
		Insecure:    a.Config.Fetch.Insecure,
		UserAgent:   a.Config.Fetch.UserAgent,
		Concurrency: a.Config.Fetch.Concurrency,
	}, a.Logger)
}

func (a *App) newNotifier(dryRun bool) (alerting.Notifier, error) {
	if dryRun {
		return alerting.NewDryRunNotifier(a.Logger), nil
	}
	if a.Config.Pushover.UserKey == "" || a.Config.Pushover.APIToken == "" {
		return nil, errors.New("pushover user key and api token are required (config, env file, or environment)")
	}
	return alerting.NewPushoverNotifier(
		a.Config.Pushover.UserKey,
		a.Config.Pushover.APIToken,
		a.Config.Pushover.APIBase,
		a.Config.Pushover.Timeout,
		a.Logger,
	), nil
}

func (a *App) newSummarizer(ctx context.Context) summarizer.Summarizer {
	if a.Config.Gemini.APIKey == "" {
		a.Logger.Debug().Msg("no gemini api key configured; digest disabled")
		return summarizer.Nop{}
	}
	sum, err := summarizer.NewGemini(ctx, summarizer.GeminiOptions{
		APIKey:  a.Config.Gemini.APIKey,
		Models:  a.Config.Gemini.Models,
		Timeout: a.Config.Gemini.Timeout,
	}, a.Logger)
	if err != nil {
		a.Logger.Error().Err(err).Msg("summarizer unavailable; continuing without digest")
		return summarizer.Nop{}
	}
	return sum
}

func (a *App) openAuditStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes one poll cycle, or the watch loop when requested.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := ossignal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Config.ResolveCredentials(); err != nil {
		return err
	}

	dryRun := opts.DryRun || a.Config.DryRun
	if dryRun {
		a.Logger.Info().Msg("dry run mode: notifications will not be sent")
	}

	notifier, err := a.newNotifier(dryRun)
	if err != nil {
		return err
	}

	audit, closeAudit, err := a.openAuditStore(ctx)
	if err != nil {
		return err
	}
	if closeAudit != nil {
		defer closeAudit()
	}

	var auditStore storage.AlertStore
	var locker storage.AdvisoryLocker
	if audit != nil {
		auditStore = audit
		locker = audit
	}

	svc := service.New(
		a.Config,
		a.newFetcher(),
		state.NewStore(a.Config.State.Path),
		notifier,
		a.newSummarizer(ctx),
		auditStore,
		locker,
		a.Logger,
	)

	if !opts.Watch {
		_, err := svc.RunOnce(ctx)
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting watch loop")
	err = sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		_, err := svc.RunOnce(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// Simulate feeds synthetic values through the signal engine and notifier.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if err := a.Config.ResolveCredentials(); err != nil {
		return err
	}

	notifier, err := a.newNotifier(a.Config.DryRun)
	if err != nil {
		return err
	}

	if opts.NPeriods < 1 {
		opts.NPeriods = a.Config.Alerting.DefaultNPeriods
	}
	if opts.Threshold <= 0 {
		opts.Threshold = a.Config.Alerting.DefaultThreshold
	}

	// Synthetic daily dates ending yesterday keep history strictly before
	// the simulated point.
	history := make([]state.DataPoint, len(opts.History))
	base := time.Now().UTC().AddDate(0, 0, -len(opts.History))
	for i, v := range opts.History {
		history[i] = state.DataPoint{
			Date:  base.AddDate(0, 0, i).Format("2006-01-02"),
			Value: v,
		}
	}

	svc := service.New(a.Config, nil, state.NewStore(a.Config.State.Path), notifier, summarizer.Nop{}, nil, nil, a.Logger)
	res, err := svc.EvaluateOnce(ctx, opts.Name, opts.Value, history, opts.NPeriods, opts.Threshold)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Float64("score_pct", res.Score).
		Float64("threshold_pct", opts.Threshold).
		Bool("triggered", signal.Triggered(res, opts.Threshold)).
		Msg("simulation complete")
	fmt.Printf("score: %+.2f%% (threshold %.2f%%)\n", res.Score, opts.Threshold)
	return nil
}
