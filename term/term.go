// Package term is the terminal surface: it renders the published projection
// on a refresh interval and feeds slash commands into the shared queue.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/engine"
)

// UI drives the interactive terminal session. Stop is invoked on /quit to
// cancel the whole runtime.
type UI struct {
	eng  *engine.Engine
	log  *zap.Logger
	out  io.Writer
	in   io.Reader
	stop context.CancelFunc
}

func NewUI(eng *engine.Engine, log *zap.Logger, in io.Reader, out io.Writer, stop context.CancelFunc) *UI {
	return &UI{eng: eng, log: log, in: in, out: out, stop: stop}
}

// Run renders until the context is cancelled. Input is consumed on its own
// goroutine so a blocked read never stalls rendering.
func (u *UI) Run(ctx context.Context, refresh time.Duration) {
	go u.readLoop(ctx)

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if proj := u.eng.Projection(); proj != nil {
				u.render(proj)
			}
		}
	}
}

func (u *UI) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(u.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		u.handleLine(line)
	}
}

func (u *UI) handleLine(line string) {
	cmd, err := engine.ParseSlash(line, time.Now())
	switch {
	case errors.Is(err, engine.ErrQuitCommand):
		fmt.Fprintln(u.out, "Shutting down...")
		u.stop()
		return
	case errors.Is(err, engine.ErrHelpCommand):
		u.printHelp()
		return
	case err != nil:
		fmt.Fprintf(u.out, "error: %v\n", err)
		return
	}

	if err := u.eng.Enqueue(cmd); err != nil {
		fmt.Fprintf(u.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(u.out, "queued: %s\n", cmd.Kind)
}

func (u *UI) render(p *engine.Projection) {
	var b strings.Builder

	mode := strings.ToUpper(p.Mode)
	fmt.Fprintf(&b, "\n=== %s | %s | equity %.2f | cash %.2f | pnl %.2f | orders today %d/%d ===\n",
		mode, p.StrategyName, p.Equity, p.Cash, p.RealizedPnL,
		p.DayOrderCount, p.Risk.MaxOrdersPerDay)
	if p.Degraded {
		fmt.Fprintln(&b, "!!! DEGRADED: unresolved orders pending manual review, entries blocked !!!")
	}
	if p.Risk.KillSwitchEnabled {
		fmt.Fprintln(&b, "--- kill switch engaged, new entries blocked ---")
	}

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHG%\tSIGNAL\tBUY\tSELL")
	for _, e := range p.Watchlist {
		fmt.Fprintf(w, "%s\t%.2f\t%+.2f\t%s\t%s\t%s\n",
			e.Symbol, e.LastPrice, e.ChangePct, e.LatestSignal,
			flag(e.BuyEnabled), flag(e.SellEnabled))
	}
	w.Flush()

	if len(p.Positions) > 0 {
		fmt.Fprintln(&b)
		w = tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "POSITION\tSIDE\tQTY\tAVG\tMKT\tUPNL")
		for _, pos := range p.Positions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%+.2f\n",
				pos.Symbol, pos.Side, pos.Quantity,
				pos.AvgEntryPrice, pos.MarketPrice, pos.UnrealizedPnL)
		}
		w.Flush()
	}

	if n := len(p.Events); n > 0 {
		fmt.Fprintln(&b)
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, ev := range p.Events[start:] {
			fmt.Fprintf(&b, "  %s [%s] %s\n", ev.Time.Format("15:04:05"), ev.Kind, ev.Message)
		}
	}

	fmt.Fprint(u.out, b.String())
}

func (u *UI) printHelp() {
	fmt.Fprint(u.out, `Commands (percentages as whole numbers, e.g. "/sl 2" = 2%):
  /buy on|off      (/b)   enable or disable buying
  /sell on|off     (/s)   enable or disable selling
  /sl N            (/ls)  stop loss percent
  /tp N            (/pt)  take profit percent
  /risk N          (/r)   risk per trade percent
  /maxpos N        (/mp)  max position percent of capital
  /kill on|off     (/ko)  kill switch
  /hours on|off    (/mh)  market hours guard
  /maxorders N     (/mo)  max orders per day
  /mode paper|live (/m)   switch trading mode
  /add SYM         (/a)   add symbol to watchlist
  /remove SYM      (/rm)  remove symbol from watchlist
  /clearstate      (/cs)  clear saved session state
  /help            (/h)   this help
  /quit            (/q)   save and exit
`)
}

func flag(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
