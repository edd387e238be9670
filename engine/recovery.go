package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/broker"
	"github.com/rustyeddy/tradeloop/journal"
	"github.com/rustyeddy/tradeloop/ledger"
	"github.com/rustyeddy/tradeloop/order"
	"github.com/rustyeddy/tradeloop/store"
)

// recover restores the session from the last snapshot and reconciles every
// order the journal shows as submitted but unresolved. Each such order gets
// exactly one terminal transition; if the broker cannot be queried the
// runtime enters degraded mode and blocks new entries until reconciliation
// succeeds.
func (e *Engine) recover(ctx context.Context, now time.Time) error {
	e.sess = e.loadSession(now)

	open, err := e.jrnl.OpenSubmitted()
	if err != nil {
		return fmt.Errorf("scan journal for open orders: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	e.log.Info("reconciling unresolved submissions", zap.Int("count", len(open)))
	e.reconcileOpen(ctx, now, open)
	return nil
}

func (e *Engine) loadSession(now time.Time) *ledger.Session {
	fresh := func() *ledger.Session {
		return ledger.NewSession(e.cfg.Session.Mode, e.cfg.Risk, now)
	}

	if !e.cfg.Persist.AutoResumeSession {
		sess := fresh()
		e.seedWatchlist(sess)
		return sess
	}

	snap, err := e.snaps.Load()
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		sess := fresh()
		e.seedWatchlist(sess)
		sess.AddEvent(now, "system", "No saved session found. Starting fresh.")
		return sess
	case err != nil:
		// A corrupt snapshot must never take the runtime down.
		e.log.Warn("snapshot unreadable, starting fresh", zap.Error(err))
		sess := fresh()
		e.seedWatchlist(sess)
		sess.AddEvent(now, "system", fmt.Sprintf("Saved session unreadable (%v). Starting fresh.", err))
		return sess
	}

	sess := snap.Session
	e.seedWatchlist(sess)
	sess.RecomputeEquity()
	sess.AddEvent(now, "system",
		fmt.Sprintf("Session resumed from snapshot saved %s.", snap.SavedAt.UTC().Format(time.RFC3339)))
	e.log.Info("session resumed",
		zap.Time("saved_at", snap.SavedAt),
		zap.Float64("cash", sess.Cash),
		zap.Int("positions", len(sess.Positions)))
	return sess
}

// seedWatchlist unions the configured watchlist into the session so config
// additions show up even on a resumed session.
func (e *Engine) seedWatchlist(sess *ledger.Session) {
	for _, sym := range e.cfg.Session.Watchlist {
		if _, ok := sess.Watchlist[sym]; !ok {
			sess.AddSymbol(sym)
		}
	}
}

// reconcileOpen applies one terminal transition per unresolved submission.
func (e *Engine) reconcileOpen(ctx context.Context, now time.Time, open []journal.Transition) {
	for _, tr := range open {
		if err := e.reconcileOne(ctx, now, tr); err != nil {
			e.enterDegraded(now, tr, err)
			return
		}
	}
}

func (e *Engine) reconcileOne(ctx context.Context, now time.Time, tr journal.Transition) error {
	var report broker.StatusReport
	err := broker.Retry(ctx, broker.DefaultRetry, func() error {
		var qerr error
		report, qerr = e.brk.GetOrderStatus(ctx, tr.BrokerOrderID)
		return qerr
	})
	if err != nil {
		if errors.Is(err, broker.ErrOrderNotFound) {
			// Broker never saw it: the crash happened between the journal
			// write and the submit call. Safe to fail.
			return e.recordTerminal(tr, order.StatusFailed, "not_found_at_broker", now)
		}
		return err
	}

	switch report.Status {
	case broker.StatusFilled:
		price := report.AvgFillPrice
		if price <= 0 {
			price = tr.Price
		}
		// Journal the terminal transition before touching the ledger. The
		// reverse order would let a journal failure leave the order open,
		// and the next restart would apply the same fill a second time.
		if jerr := e.recordTerminal(tr, order.StatusFilled, "recovered_fill", now); jerr != nil {
			return jerr
		}
		delta := tr.Quantity
		if tr.Side == "SELL" {
			delta = -tr.Quantity
		}
		if _, ferr := e.sess.ApplyFill(tr.Symbol, delta, price, e.cfg.Session.OrderFee, now); ferr != nil {
			e.log.Error("recovered fill not applied",
				zap.String("order_id", tr.OrderID), zap.Error(ferr))
			e.sess.AddEvent(now, "recovery",
				fmt.Sprintf("%s: recovered fill could not be applied (%v)", tr.Symbol, ferr))
			return nil
		}
		e.sess.AddEvent(now, "recovery",
			fmt.Sprintf("%s: recovered fill %s %d @ %.2f", tr.Symbol, tr.Side, tr.Quantity, price))
	case broker.StatusCancelled:
		return e.recordTerminal(tr, order.StatusCancelled, "recovered_cancel", now)
	case broker.StatusRejected:
		return e.recordTerminal(tr, order.StatusRejected, "recovered_reject", now)
	default:
		// Still open at the broker. Cancel rather than adopt an order this
		// process has no live record of.
		if cerr := e.brk.CancelOrder(ctx, tr.BrokerOrderID); cerr != nil && !errors.Is(cerr, broker.ErrOrderNotFound) {
			return fmt.Errorf("cancel open order %s: %w", tr.OrderID, cerr)
		}
		if jerr := e.recordTerminal(tr, order.StatusCancelled, "recovered_open_cancelled", now); jerr != nil {
			return jerr
		}
		e.sess.AddEvent(now, "recovery",
			fmt.Sprintf("%s: stale open order cancelled at broker", tr.Symbol))
	}
	return nil
}

func (e *Engine) recordTerminal(tr journal.Transition, status order.Status, reason string, now time.Time) error {
	err := e.jrnl.Record(journal.Transition{
		OrderID:       tr.OrderID,
		At:            now,
		Symbol:        tr.Symbol,
		Side:          tr.Side,
		Quantity:      tr.Quantity,
		Price:         tr.Price,
		Mode:          tr.Mode,
		Status:        string(status),
		Reason:        reason,
		BrokerOrderID: tr.BrokerOrderID,
		IsExit:        tr.IsExit,
	})
	if err != nil {
		e.log.Error("journal reconciliation write failed",
			zap.String("order_id", tr.OrderID), zap.Error(err))
		return fmt.Errorf("journal %s for %s: %w", status, tr.OrderID, err)
	}
	return nil
}

func (e *Engine) enterDegraded(now time.Time, tr journal.Transition, err error) {
	e.degraded.Store(true)
	e.log.Error("broker reconciliation failed, entering manual-review mode",
		zap.String("order_id", tr.OrderID), zap.Error(err))
	e.sess.AddEvent(now, "recovery",
		fmt.Sprintf("Could not reconcile order %s with broker (%v). New entries blocked pending manual review.", tr.OrderID, err))
}

// retryRecoveryReconciliation re-attempts the startup reconciliation while
// degraded. Exits degraded mode once every open submission has a terminal
// transition.
func (e *Engine) retryRecoveryReconciliation(ctx context.Context, now time.Time) {
	open, err := e.jrnl.OpenSubmitted()
	if err != nil {
		e.log.Warn("journal scan failed during degraded retry", zap.Error(err))
		return
	}
	for _, tr := range open {
		if err := e.reconcileOne(ctx, now, tr); err != nil {
			return
		}
	}
	e.degraded.Store(false)
	e.sess.AddEvent(now, "recovery", "All unresolved orders reconciled. Normal operation resumed.")
	e.log.Info("degraded mode cleared")
}
