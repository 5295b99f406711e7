package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SetupSentinel/internal/collector"
	"SetupSentinel/internal/display"
	"SetupSentinel/internal/logger"
	"SetupSentinel/internal/metrics"
	"SetupSentinel/internal/model"
	"SetupSentinel/internal/notifier"
	"SetupSentinel/internal/strategy"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

// Deps are the collaborators of a Supervisor. Notifier, Display and
// Metrics fall back to log-only implementations when nil.
type Deps struct {
	Collector *collector.Collector
	Params    strategy.Params
	Notifier  notifier.Notifier
	Display   display.Display
	Metrics   *metrics.Metrics
	Health    *metrics.Health
}

// Supervisor runs one monitoring unit per instrument on a fixed cadence.
type Supervisor struct {
	Deps
	symbols  []string
	interval time.Duration
	cooldown time.Duration
	now      func() time.Time

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	units  []*unit
}

// unit is the state of one instrument's loop. Only its own cycles touch it.
type unit struct {
	symbol       string
	checklist    *strategy.Checklist
	lastNotified map[string]time.Time // by title
}

// NewSupervisor creates a supervisor for symbols. A zero cooldown repeats
// notifications on every qualifying cycle.
func NewSupervisor(symbols []string, interval, cooldown time.Duration, deps Deps) *Supervisor {
	if deps.Notifier == nil {
		deps.Notifier = notifier.NewLogNotifier()
	}
	if deps.Display == nil {
		deps.Display = display.NewLogDisplay()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Supervisor{
		Deps:     deps,
		symbols:  symbols,
		interval: interval,
		cooldown: cooldown,
		now:      time.Now,
	}
	for _, sym := range symbols {
		s.units = append(s.units, &unit{
			symbol:       sym,
			checklist:    strategy.NewChecklist(sym, deps.Params),
			lastNotified: make(map[string]time.Time),
		})
	}
	return s
}

// Start schedules every unit and runs its first cycle immediately. Cycles of
// one unit never overlap; a cycle still running when the next tick fires
// makes that tick a no-op.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(
		cron.WithLogger(logger.CronLogger{}),
		cron.WithChain(cron.SkipIfStillRunning(logger.CronLogger{})),
	)

	ids := make([]cron.EntryID, 0, len(s.units))
	for _, u := range s.units {
		ids = append(ids, s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
			s.cycle(s.ctx, u)
		})))
		s.Display.Log(u.symbol, s.now(), "Started monitoring...")
	}
	s.cron.Start()

	for _, id := range ids {
		job := s.cron.Entry(id).WrappedJob
		if job == nil {
			return fmt.Errorf("scheduler: entry %d not registered", id)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			job.Run()
		}()
	}
	logger.Info("supervisor started",
		zap.Strings("symbols", s.symbols),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels in-flight cycles and waits for them to return.
func (s *Supervisor) Stop() {
	if s.cron == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	logger.Info("supervisor stopped")
}

func (s *Supervisor) cycle(ctx context.Context, u *unit) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle panic", zap.String("symbol", u.symbol), zap.Any("panic", r))
			s.log(u, fmt.Sprintf("Error: %v", r))
			s.Metrics.Cycles.WithLabelValues(u.symbol, metrics.ResultError).Inc()
		}
	}()

	slowTF := s.Collector.Slow.Timeframe
	bars, err := s.fetch(ctx, slowTF, func(ctx context.Context) ([]model.OHLCV, error) {
		return s.Collector.SlowBars(ctx, u.symbol)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.fail(u, slowTF, err)
		return
	}

	res, err := u.checklist.Evaluate(ctx, bars, func(ctx context.Context) ([]model.OHLCV, error) {
		return s.fetch(ctx, s.Collector.Fast.Timeframe, func(ctx context.Context) ([]model.OHLCV, error) {
			return s.Collector.FastBars(ctx, u.symbol)
		})
	})
	if err != nil {
		s.fail(u, slowTF, err)
		return
	}
	s.report(ctx, u, res)
}

func (s *Supervisor) fetch(ctx context.Context, tf model.Timeframe, get func(context.Context) ([]model.OHLCV, error)) ([]model.OHLCV, error) {
	start := time.Now()
	bars, err := get(ctx)
	s.Metrics.FetchDuration.WithLabelValues(string(tf)).Observe(time.Since(start).Seconds())
	return bars, err
}

// fail records a skipped cycle; the unit carries on at the next tick.
func (s *Supervisor) fail(u *unit, tf model.Timeframe, err error) {
	if errors.Is(err, collector.ErrNoData) {
		s.log(u, fmt.Sprintf("No %s data yet", tf))
		s.Metrics.Cycles.WithLabelValues(u.symbol, metrics.ResultNoData).Inc()
		return
	}
	logger.Warn("cycle failed", zap.String("symbol", u.symbol), zap.Error(err))
	s.log(u, fmt.Sprintf("Error: %v", err))
	s.Metrics.Cycles.WithLabelValues(u.symbol, metrics.ResultError).Inc()
}

func (s *Supervisor) report(ctx context.Context, u *unit, res strategy.Result) {
	st := res.State
	s.Display.Update(u.symbol, st.Flags())

	for gate, ok := range map[string]bool{
		"breach":        st.Breach,
		"divergence":    st.Divergence,
		"below_midline": st.BelowMidline,
		"time_window":   st.TimeWindow,
	} {
		if ok {
			s.Metrics.GatePasses.WithLabelValues(u.symbol, gate).Inc()
		}
	}

	fastTF := s.Collector.Fast.Timeframe
	if st.SlowReady() {
		s.notify(ctx, u, string(s.Collector.Slow.Timeframe), fmt.Sprintf("Conditions met, checking %s...", fastTF))
	}
	if res.FastErr != nil && ctx.Err() == nil {
		if errors.Is(res.FastErr, collector.ErrNoData) {
			s.log(u, fmt.Sprintf("No %s data yet", fastTF))
		} else {
			logger.Warn("confirmation stage failed", zap.String("symbol", u.symbol), zap.Error(res.FastErr))
			s.log(u, fmt.Sprintf("Error: %v", res.FastErr))
		}
	}
	if st.AllConfirmed {
		s.Metrics.Confirmations.WithLabelValues(u.symbol).Inc()
		s.notify(ctx, u, string(fastTF), "Retrace confirmed, ALL conditions met!")
	}

	logger.Debug("cycle done",
		zap.String("symbol", u.symbol),
		zap.Float64("rsi", res.Slow.Oscillator),
		zap.Float64("fisher", res.Slow.Transform),
		zap.String("breach", string(res.Slow.Breach.Kind)),
		zap.Bool("slow_ready", st.SlowReady()),
		zap.Bool("confirmed", st.AllConfirmed))
	s.Metrics.Cycles.WithLabelValues(u.symbol, metrics.ResultOK).Inc()
	if s.Health != nil {
		s.Health.Observe(u.symbol, s.now())
	}
}

// notify logs the alert and delivers it unless the same title fired within
// the cooldown. Delivery failures are counted and otherwise swallowed.
func (s *Supervisor) notify(ctx context.Context, u *unit, title, message string) {
	now := s.now()
	s.log(u, title+" - "+message)
	if last, ok := u.lastNotified[title]; ok && s.cooldown > 0 && now.Sub(last) < s.cooldown {
		logger.Debug("notification suppressed", zap.String("symbol", u.symbol), zap.String("title", title))
		return
	}
	u.lastNotified[title] = now

	if err := s.trySend(ctx, u.symbol, title, message); err != nil {
		logger.Warn("send notification", zap.String("symbol", u.symbol), zap.Error(err))
		s.Metrics.NotifyFailures.WithLabelValues(u.symbol).Inc()
	}
}

func (s *Supervisor) trySend(ctx context.Context, symbol, title, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	return s.Notifier.Notify(ctx, symbol, title, message)
}

func (s *Supervisor) log(u *unit, line string) {
	s.Display.Log(u.symbol, s.now(), line)
}
