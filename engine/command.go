package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommandKind enumerates the closed control vocabulary. The terminal slash
// commands and the web control endpoint map 1:1 onto these kinds, which is
// what guarantees behavioral parity between the two surfaces.
type CommandKind string

const (
	CmdSetBuyEnabled       CommandKind = "SET_BUY_ENABLED"
	CmdSetSellEnabled      CommandKind = "SET_SELL_ENABLED"
	CmdSetStopLoss         CommandKind = "SET_SL"
	CmdSetTakeProfit       CommandKind = "SET_TP"
	CmdSetRiskPct          CommandKind = "SET_RISK_PCT"
	CmdSetMaxPosPct        CommandKind = "SET_MAX_POS_PCT"
	CmdSetKillSwitch       CommandKind = "SET_KILL_SWITCH"
	CmdSetMarketHoursGuard CommandKind = "SET_MARKET_HOURS_GUARD"
	CmdSetMaxOrders        CommandKind = "SET_MAX_ORDERS"
	CmdSetMode             CommandKind = "SET_MODE"
	CmdAddSymbol           CommandKind = "ADD_SYMBOL"
	CmdRemoveSymbol        CommandKind = "REMOVE_SYMBOL"
	CmdClearState          CommandKind = "CLEAR_STATE"
)

// Command sources.
const (
	SourceCLI = "cli"
	SourceWeb = "web"
)

// Command is one validated control action. Payload fields are used per kind:
// Symbol for the per-symbol toggles and watchlist edits (empty Symbol on a
// toggle flips the global flag), Pct for percentage kinds (as a fraction),
// Int for SET_MAX_ORDERS, Str for SET_MODE.
type Command struct {
	Kind       CommandKind `json:"kind"`
	Symbol     string      `json:"symbol,omitempty"`
	Bool       bool        `json:"bool,omitempty"`
	Pct        float64     `json:"pct,omitempty"`
	Int        int         `json:"int,omitempty"`
	Str        string      `json:"str,omitempty"`
	Source     string      `json:"source"`
	ReceivedAt time.Time   `json:"received_at"`
}

var ErrMalformedCommand = errors.New("malformed command")

// Validate rejects malformed payloads at ingress, before the command ever
// reaches the queue.
func (c Command) Validate() error {
	switch c.Kind {
	case CmdSetBuyEnabled, CmdSetSellEnabled, CmdSetKillSwitch, CmdSetMarketHoursGuard:
		return nil
	case CmdSetStopLoss, CmdSetTakeProfit, CmdSetRiskPct:
		if c.Pct <= 0 || c.Pct > 1 {
			return fmt.Errorf("%w: %s pct %.4f out of (0, 1]", ErrMalformedCommand, c.Kind, c.Pct)
		}
		return nil
	case CmdSetMaxPosPct:
		if c.Pct < 0.01 || c.Pct > 1 {
			return fmt.Errorf("%w: %s pct %.4f out of [0.01, 1]", ErrMalformedCommand, c.Kind, c.Pct)
		}
		return nil
	case CmdSetMaxOrders:
		if c.Int < 1 {
			return fmt.Errorf("%w: max orders %d must be >= 1", ErrMalformedCommand, c.Int)
		}
		return nil
	case CmdSetMode:
		if c.Str != "paper" && c.Str != "live" {
			return fmt.Errorf("%w: mode %q", ErrMalformedCommand, c.Str)
		}
		return nil
	case CmdAddSymbol, CmdRemoveSymbol:
		if strings.TrimSpace(c.Symbol) == "" {
			return fmt.Errorf("%w: %s requires a symbol", ErrMalformedCommand, c.Kind)
		}
		return nil
	case CmdClearState:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedCommand, c.Kind)
	}
}

var slashAliases = map[string]string{
	"b":  "buy",
	"s":  "sell",
	"r":  "risk",
	"m":  "mode",
	"q":  "quit",
	"h":  "help",
	"ls": "sl",
	"pt": "tp",
	"mp": "maxpos",
	"ko": "kill",
	"mh": "hours",
	"mo": "maxorders",
	"a":  "add",
	"rm": "remove",
	"cs": "clearstate",
}

// Sentinel results from ParseSlash for commands the loop handles directly.
var (
	ErrQuitCommand = errors.New("quit")
	ErrHelpCommand = errors.New("help")
)

// ParseSlash turns a terminal slash command line into a Command.
// Percentages are entered as whole numbers ("/sl 2" means 2%).
func ParseSlash(line string, now time.Time) (Command, error) {
	tokens := strings.Fields(strings.TrimSpace(line))
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrMalformedCommand)
	}

	key := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	if alias, ok := slashAliases[key]; ok {
		key = alias
	}

	cmd := Command{Source: SourceCLI, ReceivedAt: now}

	arg := func(i int) string {
		if len(tokens) > i {
			return tokens[i]
		}
		return ""
	}
	onOff := func() (bool, error) {
		switch strings.ToLower(arg(1)) {
		case "on":
			return true, nil
		case "off":
			return false, nil
		default:
			return false, fmt.Errorf("%w: expected on|off", ErrMalformedCommand)
		}
	}
	pct := func() (float64, error) {
		v, err := strconv.ParseFloat(arg(1), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid percentage %q", ErrMalformedCommand, arg(1))
		}
		return v / 100, nil
	}

	var err error
	switch key {
	case "quit":
		return Command{}, ErrQuitCommand
	case "help":
		return Command{}, ErrHelpCommand
	case "buy":
		cmd.Kind = CmdSetBuyEnabled
		cmd.Bool, err = onOff()
	case "sell":
		cmd.Kind = CmdSetSellEnabled
		cmd.Bool, err = onOff()
	case "sl":
		cmd.Kind = CmdSetStopLoss
		cmd.Pct, err = pct()
	case "tp":
		cmd.Kind = CmdSetTakeProfit
		cmd.Pct, err = pct()
	case "risk":
		cmd.Kind = CmdSetRiskPct
		cmd.Pct, err = pct()
	case "maxpos":
		cmd.Kind = CmdSetMaxPosPct
		cmd.Pct, err = pct()
	case "kill":
		cmd.Kind = CmdSetKillSwitch
		cmd.Bool, err = onOff()
	case "hours":
		cmd.Kind = CmdSetMarketHoursGuard
		cmd.Bool, err = onOff()
	case "maxorders":
		cmd.Kind = CmdSetMaxOrders
		cmd.Int, err = strconv.Atoi(arg(1))
		if err != nil {
			err = fmt.Errorf("%w: invalid max orders %q", ErrMalformedCommand, arg(1))
		}
	case "mode":
		cmd.Kind = CmdSetMode
		cmd.Str = strings.ToLower(arg(1))
	case "add":
		cmd.Kind = CmdAddSymbol
		cmd.Symbol = strings.ToUpper(arg(1))
	case "remove":
		cmd.Kind = CmdRemoveSymbol
		cmd.Symbol = strings.ToUpper(arg(1))
	case "clearstate":
		cmd.Kind = CmdClearState
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrMalformedCommand, key)
	}
	if err != nil {
		return Command{}, err
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
