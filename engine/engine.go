// Package engine runs the live trading control loop: one owner of the
// session state, a fixed tick, and a single-consumer command queue feeding
// mutations between ticks.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/broker"
	"github.com/rustyeddy/tradeloop/config"
	"github.com/rustyeddy/tradeloop/journal"
	"github.com/rustyeddy/tradeloop/ledger"
	"github.com/rustyeddy/tradeloop/market"
	"github.com/rustyeddy/tradeloop/order"
	"github.com/rustyeddy/tradeloop/pkg/id"
	"github.com/rustyeddy/tradeloop/risk"
	"github.com/rustyeddy/tradeloop/store"
	"github.com/rustyeddy/tradeloop/strategy"
)

const (
	dedupeWindow          = 20 * time.Second
	defaultPersistTimeout = 5 * time.Second
	persistFailureWarnAt  = 3
	defaultQueueCapacity  = 64
)

// SnapshotStore persists and restores the session snapshot.
type SnapshotStore interface {
	Save(sess *ledger.Session, now time.Time) error
	Load() (*store.Snapshot, error)
	Clear() error
}

// Options wires an Engine together.
type Options struct {
	Config    *config.Config
	Logger    *zap.Logger
	Broker    broker.Broker
	Source    market.Source
	Strategy  strategy.Strategy
	Journal   journal.Journal
	Snapshots SnapshotStore
}

// Engine owns the session state. All mutation happens on the control loop
// goroutine; surfaces interact only through Enqueue and Projection.
type Engine struct {
	cfg   *config.Config
	log   *zap.Logger
	brk   broker.Broker
	src   market.Source
	strat strategy.Strategy
	jrnl  journal.Journal
	snaps SnapshotStore

	sess    *ledger.Session
	tracker *order.Tracker
	queue   *CommandQueue
	metrics *Metrics

	proj     atomic.Pointer[Projection]
	degraded atomic.Bool

	lastOrderAt     map[string]time.Time
	submitTimeout   time.Duration
	persistTimeout  time.Duration
	persistDone     chan error
	persistFailures int
	lossBreachedDay string
	sessionStart    time.Time
}

func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("engine: config required")
	}
	if opts.Broker == nil || opts.Source == nil || opts.Strategy == nil {
		return nil, fmt.Errorf("engine: broker, source and strategy required")
	}
	if opts.Journal == nil || opts.Snapshots == nil {
		return nil, fmt.Errorf("engine: journal and snapshot store required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout, err := opts.Config.SubmitTimeout()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:            opts.Config,
		log:            log,
		brk:            opts.Broker,
		src:            opts.Source,
		strat:          opts.Strategy,
		jrnl:           opts.Journal,
		snaps:          opts.Snapshots,
		tracker:        order.NewTracker(),
		queue:          NewCommandQueue(defaultQueueCapacity),
		metrics:        NewMetrics(),
		lastOrderAt:    make(map[string]time.Time),
		submitTimeout:  timeout,
		persistTimeout: defaultPersistTimeout,
	}, nil
}

// Enqueue validates and queues a control command from either surface.
func (e *Engine) Enqueue(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	return e.queue.Enqueue(cmd)
}

// Projection returns the latest published read-only view. Nil until the
// first tick completes.
func (e *Engine) Projection() *Projection {
	return e.proj.Load()
}

// Degraded reports whether startup reconciliation failed and the runtime is
// in manual-review mode (no new entries).
func (e *Engine) Degraded() bool { return e.degraded.Load() }

// Run recovers state, then ticks until the context is cancelled. On exit it
// drains the queue, applies pending commands and writes a final snapshot.
func (e *Engine) Run(ctx context.Context) error {
	now := time.Now()
	e.sessionStart = now

	if err := e.recover(ctx, now); err != nil {
		return fmt.Errorf("recover session: %w", err)
	}

	e.tick(ctx, time.Now())

	ticker := time.NewTicker(e.cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return e.shutdown()
		case t := <-ticker.C:
			e.tick(ctx, t)
		}
	}
}

// tick is one control loop iteration: drain commands, roll the day counter,
// refresh quotes and signals, evaluate exits then entries, reconcile stale
// submissions, publish the projection, persist.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	for _, cmd := range e.queue.Drain() {
		e.applyCommand(cmd, now)
	}

	if e.sess.RollDay(now) {
		e.sess.AddEvent(now, "system", "Day order counter reset.")
	}

	quotes := e.refreshQuotes(ctx, now)
	e.sess.RecordEquityPoint()

	if e.degraded.Load() {
		e.retryRecoveryReconciliation(ctx, now)
	} else {
		e.processSignals(ctx, now, quotes)
		e.reconcileSubmitted(ctx, now)
	}

	e.publish(now)
	e.persist(now)
}

func (e *Engine) refreshQuotes(ctx context.Context, now time.Time) map[string]market.Quote {
	quotes := make(map[string]market.Quote, len(e.sess.Watchlist))
	for _, sym := range e.sess.Symbols() {
		q, err := e.src.GetQuote(ctx, sym)
		if err != nil {
			e.log.Warn("quote fetch failed", zap.String("symbol", sym), zap.Error(err))
			e.sess.AddEvent(now, "data", fmt.Sprintf("%s: quote error (%v)", sym, err))
			continue
		}
		quotes[sym] = q
		e.sess.MarkPrice(sym, q.Price, q.ChangePct())
		if w, ok := e.sess.Watchlist[sym]; ok {
			w.LatestSignal = e.strat.Update(q)
		}
	}
	return quotes
}

func (e *Engine) processSignals(ctx context.Context, now time.Time, quotes map[string]market.Quote) {
	if risk.DailyLossBreached(e.sess.Risk, e.sess.RealizedPnL) {
		day := now.UTC().Format("2006-01-02")
		if e.lossBreachedDay != day {
			e.lossBreachedDay = day
			e.sess.AddEvent(now, "risk", "Daily max-loss breached. New entries are disabled.")
			e.log.Warn("daily loss limit breached", zap.Float64("realized_pnl", e.sess.RealizedPnL))
		}
		return
	}

	// Exits first so freed capital is available to entries in the same tick.
	for sym, q := range quotes {
		pos, ok := e.sess.Positions[sym]
		if !ok || pos.Quantity == 0 {
			continue
		}
		signal := e.signalFor(sym)
		e.evaluateExit(ctx, now, pos, q.Price, signal)
	}

	for sym, q := range quotes {
		if pos, ok := e.sess.Positions[sym]; ok && pos.Quantity != 0 {
			continue
		}
		switch e.signalFor(sym) {
		case strategy.Buy:
			e.submitEntry(ctx, now, sym, risk.SideBuy, q.Price, "STRATEGY_BUY")
		case strategy.Sell:
			if e.sess.Risk.AllowShort {
				e.submitEntry(ctx, now, sym, risk.SideSell, q.Price, "STRATEGY_SELL")
			}
		}
	}
}

func (e *Engine) signalFor(sym string) strategy.Signal {
	if w, ok := e.sess.Watchlist[sym]; ok {
		return w.LatestSignal
	}
	return strategy.Hold
}

func (e *Engine) evaluateExit(ctx context.Context, now time.Time, pos *ledger.Position, mark float64, signal strategy.Signal) {
	cfg := e.sess.Risk
	long := pos.Quantity > 0

	var (
		exit   bool
		reason risk.ExitReason
	)
	if long {
		exit, reason = risk.CheckExitLong(cfg, pos.AvgEntryPrice, mark)
	} else {
		exit, reason = risk.CheckExitShort(cfg, pos.AvgEntryPrice, mark)
	}

	exitSide := risk.SideSell
	if !long {
		exitSide = risk.SideBuy
	}

	switch {
	case exit:
		e.submitOrder(ctx, now, risk.Intent{
			Now:      now,
			Symbol:   pos.Symbol,
			Side:     exitSide,
			Price:    mark,
			Quantity: absInt(pos.Quantity),
			IsExit:   true,
		}, string(reason))
	case long && signal == strategy.Sell:
		e.submitOrder(ctx, now, risk.Intent{
			Now:      now,
			Symbol:   pos.Symbol,
			Side:     exitSide,
			Price:    mark,
			Quantity: absInt(pos.Quantity),
			IsExit:   true,
		}, "STRATEGY_SELL")
	case !long && signal == strategy.Buy:
		e.submitOrder(ctx, now, risk.Intent{
			Now:      now,
			Symbol:   pos.Symbol,
			Side:     exitSide,
			Price:    mark,
			Quantity: absInt(pos.Quantity),
			IsExit:   true,
		}, "STRATEGY_BUY")
	}
}

func (e *Engine) submitEntry(ctx context.Context, now time.Time, sym string, side risk.Side, price float64, reason string) {
	e.submitOrder(ctx, now, risk.Intent{
		Now:    now,
		Symbol: sym,
		Side:   side,
		Price:  price,
	}, reason)
}

// submitOrder drives one order through the lifecycle state machine. Every
// transition is journaled before any further handling of that transition.
func (e *Engine) submitOrder(ctx context.Context, now time.Time, intent risk.Intent, reason string) {
	kind := "ENTRY"
	if intent.IsExit {
		kind = "EXIT"
	}
	dedupeKey := intent.Symbol + ":" + string(intent.Side) + ":" + kind
	if last, ok := e.lastOrderAt[dedupeKey]; ok && now.Sub(last) <= dedupeWindow {
		return
	}
	if e.tracker.Active(intent.Symbol, string(intent.Side)) {
		return
	}

	rec := &order.Record{
		ID:          id.New(),
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Quantity:    intent.Quantity,
		Price:       intent.Price,
		IsExit:      intent.IsExit,
		Reason:      reason,
		RequestedAt: now,
	}
	if err := e.tracker.Request(rec); err != nil {
		e.log.Warn("order request rejected", zap.String("order_id", rec.ID), zap.Error(err))
		return
	}
	e.journalRecord(rec, order.StatusRequested, reason, now)

	decision := risk.Evaluate(e.sess.Risk, intent, e.account())
	if !decision.Approved {
		e.transition(rec.ID, order.StatusRejected, decision.Reason(), now)
		e.metrics.OnOrder("REJECTED")
		e.sess.AddEvent(now, "risk",
			fmt.Sprintf("%s: %s blocked (%s)", intent.Symbol, intent.Side, decision.Reason()))
		return
	}
	rec.Quantity = decision.Quantity
	e.transition(rec.ID, order.StatusRiskApproved, reason, now)

	e.lastOrderAt[dedupeKey] = now

	// Journal the submission before the broker call: if we crash mid-submit
	// the recovery path finds a SUBMITTED record and reconciles it.
	e.transition(rec.ID, order.StatusSubmitted, reason, now)

	var ack broker.Ack
	err := broker.Retry(ctx, broker.DefaultRetry, func() error {
		var submitErr error
		ack, submitErr = e.brk.SubmitOrder(ctx, broker.OrderRequest{
			ClientID: rec.ID,
			Symbol:   rec.Symbol,
			Side:     string(rec.Side),
			Quantity: rec.Quantity,
			Price:    rec.Price,
		})
		return submitErr
	})
	if err != nil {
		e.transition(rec.ID, order.StatusFailed, fmt.Sprintf("broker_error:%v", err), now)
		e.metrics.OnOrder("FAILED")
		e.sess.AddEvent(now, "order",
			fmt.Sprintf("%s: %s %d failed (%v)", rec.Symbol, rec.Side, rec.Quantity, err))
		e.log.Error("order submission failed", zap.String("order_id", rec.ID), zap.Error(err))
		return
	}

	rec.BrokerOrderID = ack.BrokerOrderID
	e.sess.DayOrderCount++

	switch ack.Status {
	case broker.StatusFilled:
		fillPrice := ack.FillPrice
		if fillPrice <= 0 {
			fillPrice = rec.Price
		}
		e.applyFill(rec, fillPrice, now)
	case broker.StatusRejected:
		e.transition(rec.ID, order.StatusRejected, "broker_rejected", now)
		e.metrics.OnOrder("REJECTED")
		e.sess.AddEvent(now, "order",
			fmt.Sprintf("%s: %s %d rejected by broker", rec.Symbol, rec.Side, rec.Quantity))
	default:
		// Stays SUBMITTED; reconciliation picks it up on later ticks.
		e.sess.AddEvent(now, "order",
			fmt.Sprintf("%s: %s %d submitted [%s]", rec.Symbol, rec.Side, rec.Quantity, rec.BrokerOrderID))
	}
}

// applyFill journals the FILLED transition, then mutates the ledger.
func (e *Engine) applyFill(rec *order.Record, fillPrice float64, now time.Time) {
	if _, err := e.tracker.Transition(rec.ID, order.StatusFilled, "", now); err != nil {
		e.log.Error("fill transition failed", zap.String("order_id", rec.ID), zap.Error(err))
		return
	}
	rec.FillPrice = fillPrice
	e.journalRecord(rec, order.StatusFilled, rec.Reason, now)

	delta := rec.Quantity
	if rec.Side == risk.SideSell {
		delta = -rec.Quantity
	}
	realized, err := e.sess.ApplyFill(rec.Symbol, delta, fillPrice, e.cfg.Session.OrderFee, now)
	if err != nil {
		e.log.Error("ledger fill failed", zap.String("order_id", rec.ID), zap.Error(err))
		e.sess.AddEvent(now, "order", fmt.Sprintf("%s: fill not applied (%v)", rec.Symbol, err))
		return
	}
	e.metrics.OnOrder("FILLED")

	msg := fmt.Sprintf("%s: %s %d @ %.2f [%s]", rec.Symbol, rec.Side, rec.Quantity, fillPrice, rec.Reason)
	if rec.IsExit {
		msg = fmt.Sprintf("%s PnL=%.2f", msg, realized)
	}
	e.sess.AddEvent(now, "order", msg)
	e.log.Info("order filled",
		zap.String("order_id", rec.ID),
		zap.String("symbol", rec.Symbol),
		zap.String("side", string(rec.Side)),
		zap.Int("quantity", rec.Quantity),
		zap.Float64("price", fillPrice),
	)
}

// reconcileSubmitted resolves orders stuck in SUBMITTED beyond the timeout.
// An order fails only once the broker confirms it did not fill; a timeout
// alone proves nothing while a real fill may be in flight.
func (e *Engine) reconcileSubmitted(ctx context.Context, now time.Time) {
	for _, rec := range e.tracker.StaleSubmitted(now, e.submitTimeout) {
		var report broker.StatusReport
		err := broker.Retry(ctx, broker.DefaultRetry, func() error {
			var qerr error
			report, qerr = e.brk.GetOrderStatus(ctx, rec.BrokerOrderID)
			return qerr
		})
		if err != nil {
			// Leave it SUBMITTED and try again next tick.
			e.log.Warn("reconciliation query failed",
				zap.String("order_id", rec.ID), zap.Error(err))
			continue
		}

		switch report.Status {
		case broker.StatusFilled:
			price := report.AvgFillPrice
			if price <= 0 {
				price = rec.Price
			}
			e.applyFill(rec, price, now)
		case broker.StatusCancelled:
			e.transition(rec.ID, order.StatusCancelled, "reconciled", now)
			e.sess.AddEvent(now, "order", fmt.Sprintf("%s: order cancelled at broker", rec.Symbol))
		case broker.StatusRejected:
			e.transition(rec.ID, order.StatusRejected, "reconciled", now)
			e.metrics.OnOrder("REJECTED")
		default:
			// Confirmed unfilled and past the timeout: cancel, then fail.
			if cerr := e.brk.CancelOrder(ctx, rec.BrokerOrderID); cerr != nil {
				e.log.Warn("cancel during reconciliation failed",
					zap.String("order_id", rec.ID), zap.Error(cerr))
				continue
			}
			e.transition(rec.ID, order.StatusFailed, "submit_timeout", now)
			e.metrics.OnOrder("FAILED")
			e.sess.AddEvent(now, "order",
				fmt.Sprintf("%s: %s %d timed out, cancelled", rec.Symbol, rec.Side, rec.Quantity))
		}
	}
}

// transition advances the tracker and journals the new status.
func (e *Engine) transition(idStr string, next order.Status, reason string, now time.Time) {
	rec, err := e.tracker.Transition(idStr, next, reason, now)
	if err != nil {
		e.log.Error("illegal order transition", zap.String("order_id", idStr), zap.Error(err))
		return
	}
	e.journalRecord(rec, next, reason, now)
}

func (e *Engine) journalRecord(rec *order.Record, status order.Status, reason string, now time.Time) {
	err := e.jrnl.Record(journal.Transition{
		OrderID:       rec.ID,
		At:            now,
		Symbol:        rec.Symbol,
		Side:          string(rec.Side),
		Quantity:      rec.Quantity,
		Price:         rec.Price,
		Mode:          e.sess.Mode,
		Status:        string(status),
		Reason:        reason,
		BrokerOrderID: rec.BrokerOrderID,
		IsExit:        rec.IsExit,
	})
	if err != nil {
		e.persistFailures++
		e.log.Error("journal append failed", zap.String("order_id", rec.ID), zap.Error(err))
	}
}

func (e *Engine) account() risk.Account {
	buy := make(map[string]bool, len(e.sess.Watchlist))
	sell := make(map[string]bool, len(e.sess.Watchlist))
	for sym, w := range e.sess.Watchlist {
		buy[sym] = w.BuyEnabled
		sell[sym] = w.SellEnabled
	}
	return risk.Account{
		Mode:        e.sess.Mode,
		Cash:        e.sess.Cash,
		Equity:      e.sess.Equity,
		Exposure:    e.sess.TotalExposure(),
		OrdersToday: e.sess.DayOrderCount,
		BuyEnabled:  buy,
		SellEnabled: sell,
	}
}

func (e *Engine) publish(now time.Time) {
	summary, err := e.jrnl.Summarize(e.sessionStart)
	if err != nil {
		e.log.Warn("journal summary failed", zap.Error(err))
	}
	e.proj.Store(buildProjection(
		e.strat.Name(),
		e.sess,
		e.metrics.Snapshot(now, e.sess.Equity),
		summary,
		e.degraded.Load(),
		now,
	))
}

// persist writes the snapshot, bounded by a timeout so a hung filesystem
// cannot stall signal evaluation. At most one writer runs at a time: a
// second rename racing an abandoned slow write could land an older snapshot
// over a newer one. Failures are retried next tick; repeated failures
// surface a warning instead of silently losing state.
func (e *Engine) persist(now time.Time) {
	if e.persistDone != nil {
		select {
		case err := <-e.persistDone:
			e.persistDone = nil
			e.finishPersist(now, err)
		default:
			// A timed-out writer is still running; skip this save rather
			// than race its rename.
			e.persistFailures++
			e.log.Warn("snapshot write still in flight, skipping save",
				zap.Int("consecutive_failures", e.persistFailures))
			e.warnPersist(now)
			return
		}
	}

	// Clone on the loop goroutine; the writer must never observe a session
	// the next tick is mutating.
	snap := e.sess.Clone()
	done := make(chan error, 1)
	go func() { done <- e.snaps.Save(snap, now) }()

	select {
	case err := <-done:
		e.finishPersist(now, err)
	case <-time.After(e.persistTimeout):
		e.persistDone = done
		e.persistFailures++
		e.log.Error("snapshot write exceeded timeout",
			zap.Duration("timeout", e.persistTimeout),
			zap.Int("consecutive_failures", e.persistFailures))
		e.warnPersist(now)
	}
}

func (e *Engine) finishPersist(now time.Time, err error) {
	if err != nil {
		e.persistFailures++
		e.log.Error("snapshot persist failed",
			zap.Int("consecutive_failures", e.persistFailures), zap.Error(err))
		e.warnPersist(now)
		return
	}
	e.persistFailures = 0
}

func (e *Engine) warnPersist(now time.Time) {
	if e.persistFailures >= persistFailureWarnAt {
		e.sess.AddEvent(now, "persist",
			fmt.Sprintf("State persistence failing (%d consecutive). State is in-memory only.", e.persistFailures))
	}
}

// shutdown stops the queue, applies any pending commands, and commits a
// final consistent snapshot before the loop exits.
func (e *Engine) shutdown() error {
	now := time.Now()
	e.queue.Close()
	for _, cmd := range e.queue.Drain() {
		e.applyCommand(cmd, now)
	}

	// Let a timed-out writer finish before the final save so its stale
	// rename cannot land after ours.
	if e.persistDone != nil {
		<-e.persistDone
		e.persistDone = nil
	}

	if err := e.snaps.Save(e.sess.Clone(), now); err != nil {
		e.log.Error("final snapshot failed", zap.Error(err))
		return err
	}
	e.log.Info("engine stopped", zap.Float64("equity", e.sess.Equity))
	return nil
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
