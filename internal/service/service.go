package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendwatch/internal/alerting"
	"trendwatch/internal/config"
	"trendwatch/internal/fetcher"
	"trendwatch/internal/series"
	"trendwatch/internal/signal"
	"trendwatch/internal/state"
	"trendwatch/internal/storage"
	"trendwatch/internal/summarizer"
)

// BatchFetcher fans a fetch out across indicators and collects failures.
type BatchFetcher interface {
	FetchAll(ctx context.Context, indicatorIDs []string) ([]fetcher.Result, []fetcher.Failure)
}

// Report summarises one poll cycle.
type Report struct {
	Initialized  int
	NewPoints    int
	AlertsSent   int
	NotifyErrors int
	Failures     []fetcher.Failure
	Skipped      bool
	Digest       string
}

// Service orchestrates one poll cycle: concurrent fetch, sequential fold
// into the run state, threshold evaluation, alerting, and a single atomic
// state save.
type Service struct {
	cfg        *config.Config
	fetcher    BatchFetcher
	store      *state.Store
	notifier   alerting.Notifier
	summarizer summarizer.Summarizer
	audit      storage.AlertStore
	locker     storage.AdvisoryLocker
	logger     zerolog.Logger

	capacity int
	lockKey  int64
}

// New constructs the monitoring service. The audit store and locker may be
// nil; the summarizer must not be (inject summarizer.Nop when unavailable).
func New(cfg *config.Config, batch BatchFetcher, store *state.Store, notifier alerting.Notifier, sum summarizer.Summarizer, audit storage.AlertStore, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		fetcher:    batch,
		store:      store,
		notifier:   notifier,
		summarizer: sum,
		audit:      audit,
		locker:     locker,
		logger:     logger.With().Str("component", "service").Logger(),
		capacity:   cfg.HistoryCapacity(),
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}
}

// RunOnce executes a single poll cycle. The returned error is non-nil when
// the state save failed or when any indicator's fetch ultimately failed;
// partial success is reported, not masked.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	var report Report

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return report, err
	}
	if !proceed {
		s.logger.Warn().Msg("another run holds the advisory lock; skipping")
		report.Skipped = true
		return report, nil
	}
	if unlock != nil {
		defer unlock()
	}

	st, err := s.store.Load()
	if err != nil {
		return report, err
	}
	firstRun := st.FirstRun()
	if firstRun {
		s.logger.Info().Msg("first run detected; state will be seeded without alerts")
	}

	ids := make([]string, 0, len(s.cfg.Indicators))
	for _, ind := range s.cfg.Indicators {
		ids = append(ids, ind.ID)
	}
	s.logger.Info().Int("indicators", len(ids)).Int("concurrency", s.cfg.Fetch.Concurrency).Msg("polling indicators")

	results, failures := s.fetcher.FetchAll(ctx, ids)
	report.Failures = failures

	// Fetch results fan in here; everything below mutates RunState on this
	// goroutine only.
	var updated, triggered []string
	for _, res := range results {
		s.processIndicator(ctx, st, res, firstRun, &report, &updated, &triggered)
	}

	if err := s.store.Save(st); err != nil {
		return report, fmt.Errorf("persist state: %w", err)
	}
	s.logger.Info().Str("path", s.store.Path()).Msg("state saved")

	s.dispatchDigest(ctx, &report, updated, triggered)

	s.logger.Info().
		Int("new_points", report.NewPoints).
		Int("alerts_sent", report.AlertsSent).
		Int("initialized", report.Initialized).
		Int("failures", len(report.Failures)).
		Msg("run complete")

	if len(report.Failures) > 0 {
		return report, fmt.Errorf("%d of %d indicator fetches failed", len(report.Failures), len(ids))
	}
	return report, nil
}

func (s *Service) processIndicator(ctx context.Context, st *state.RunState, res fetcher.Result, firstRun bool, report *Report, updated, triggered *[]string) {
	logger := s.logger.With().Str("indicator_id", res.IndicatorID).Logger()

	parsed, err := series.Parse(res.Payload)
	if err != nil {
		logger.Error().Err(err).Msg("malformed payload; indicator skipped")
		return
	}
	if parsed.Empty() {
		logger.Warn().Msg("no datapoints returned")
		return
	}

	indCfg, ok := s.cfg.IndicatorByID(res.IndicatorID)
	if !ok {
		logger.Error().Msg("fetched indicator missing from configuration")
		return
	}

	ind := st.Indicator(res.IndicatorID)
	if firstRun || ind == nil {
		seeded := state.Initialize(res.IndicatorID, parsed.Meta.IndicatorName, parsed.Meta.Unit, parsed.Meta.Freq, parsed.Points, indCfg.NPeriods)
		if seeded == nil {
			return
		}
		st.Indicators[res.IndicatorID] = seeded
		report.Initialized++
		logger.Info().
			Str("last_date", seeded.LastCheckDate).
			Int("history_size", len(seeded.History)).
			Msg("initialized indicator state")
		return
	}

	newPoints := ind.NewPoints(parsed.Points)
	if len(newPoints) == 0 {
		logger.Info().Msg("no new datapoints")
		return
	}
	logger.Info().Int("count", len(newPoints)).Msg("new datapoints found")
	report.NewPoints += len(newPoints)

	// Evaluate strictly chronologically: each point sees stored history plus
	// the batch points that precede it, never the full batch.
	temp := ind.Window()
	for _, point := range newPoints {
		s.evaluatePoint(ctx, ind, indCfg, point, temp, report, updated, triggered)
		temp = state.Truncate(append(temp, point), s.capacity)
	}

	ind.Apply(newPoints, s.capacity)
}

func (s *Service) evaluatePoint(ctx context.Context, ind *state.IndicatorState, indCfg config.IndicatorConfig, point state.DataPoint, history []state.DataPoint, report *Report, updated, triggered *[]string) {
	logger := s.logger.With().Str("indicator_id", ind.IndicatorID).Str("date", point.Date).Logger()

	res := signal.Score(point.Value, history, indCfg.NPeriods)
	if !res.Defined {
		logger.Warn().
			Int("n_periods", indCfg.NPeriods).
			Int("history", len(history)).
			Msg("score undefined: insufficient or degenerate history")
		*updated = append(*updated, fmt.Sprintf("%s (%s): %.3f %s (score undefined)",
			ind.IndicatorID, ind.IndicatorName, point.Value, ind.Unit))
		return
	}

	logger.Info().
		Float64("value", point.Value).
		Float64("score_pct", res.Score).
		Msg("datapoint evaluated")
	*updated = append(*updated, fmt.Sprintf("%s (%s): %.3f %s (%+.1f%%)",
		ind.IndicatorID, ind.IndicatorName, point.Value, ind.Unit, res.Score))

	if !signal.Triggered(res, indCfg.Threshold) {
		return
	}

	alert := alerting.Alert{
		IndicatorID:   ind.IndicatorID,
		IndicatorName: ind.IndicatorName,
		ScorePct:      res.Score,
		ThresholdPct:  indCfg.Threshold,
		NewValue:      point.Value,
		Unit:          ind.Unit,
		Date:          point.Date,
	}
	*triggered = append(*triggered, fmt.Sprintf("%s: %+.1f%% vs threshold %.1f%%",
		ind.IndicatorName, res.Score, indCfg.Threshold))

	if err := s.notifier.Notify(ctx, alert); err != nil {
		logger.Error().Err(err).Msg("alert dispatch failed")
		report.NotifyErrors++
	} else {
		report.AlertsSent++
	}

	s.recordAlert(ctx, alert, logger)
}

func (s *Service) recordAlert(ctx context.Context, alert alerting.Alert, logger zerolog.Logger) {
	if s.audit == nil {
		return
	}
	direction := "up"
	if alert.ScorePct < 0 {
		direction = "down"
	}
	record := storage.AlertRecord{
		IndicatorID:   alert.IndicatorID,
		IndicatorName: alert.IndicatorName,
		PointDate:     alert.Date,
		ScorePct:      decimal.NewFromFloat(alert.ScorePct),
		ThresholdPct:  decimal.NewFromFloat(alert.ThresholdPct),
		Direction:     direction,
		Title:         alert.Title(),
		Message:       alert.Message(),
	}
	if _, err := s.audit.InsertAlert(ctx, record); err != nil {
		logger.Error().Err(err).Msg("failed to persist alert record")
	}
}

func (s *Service) dispatchDigest(ctx context.Context, report *Report, updated, triggered []string) {
	digest, err := s.summarizer.Summarize(ctx, updated, triggered)
	if err != nil {
		s.logger.Error().Err(err).Msg("digest generation failed; continuing without summary")
		return
	}
	if digest == "" {
		return
	}
	report.Digest = digest

	if err := s.notifier.Send(ctx, "TrendWatch Daily Digest", digest); err != nil {
		s.logger.Error().Err(err).Msg("digest dispatch failed")
		report.NotifyErrors++
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

// EvaluateOnce runs the signal engine and notifier against synthetic values
// without touching fetch or persisted state. Used by simulate-alert.
func (s *Service) EvaluateOnce(ctx context.Context, name string, value float64, history []state.DataPoint, nPeriods int, threshold float64) (signal.Result, error) {
	res := signal.Score(value, history, nPeriods)
	if !res.Defined {
		return res, fmt.Errorf("score undefined: need %d history values with positive endpoints, have %d", nPeriods, len(history))
	}
	if !signal.Triggered(res, threshold) {
		return res, nil
	}

	date := time.Now().UTC().Format("2006-01-02")
	alert := alerting.Alert{
		IndicatorName: name,
		ScorePct:      res.Score,
		ThresholdPct:  threshold,
		NewValue:      value,
		Date:          date,
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		return res, fmt.Errorf("dispatch simulated alert: %w", err)
	}
	return res, nil
}
