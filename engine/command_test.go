package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlash(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name string
		line string
		want Command
	}{
		{
			name: "buy_on",
			line: "/buy on",
			want: Command{Kind: CmdSetBuyEnabled, Bool: true},
		},
		{
			name: "sell_off_alias",
			line: "/s off",
			want: Command{Kind: CmdSetSellEnabled, Bool: false},
		},
		{
			name: "stop_loss_whole_number_percent",
			line: "/sl 2",
			want: Command{Kind: CmdSetStopLoss, Pct: 0.02},
		},
		{
			name: "take_profit_alias",
			line: "/pt 4.5",
			want: Command{Kind: CmdSetTakeProfit, Pct: 0.045},
		},
		{
			name: "risk_pct",
			line: "/risk 1",
			want: Command{Kind: CmdSetRiskPct, Pct: 0.01},
		},
		{
			name: "max_position_alias",
			line: "/mp 10",
			want: Command{Kind: CmdSetMaxPosPct, Pct: 0.10},
		},
		{
			name: "kill_switch_alias",
			line: "/ko on",
			want: Command{Kind: CmdSetKillSwitch, Bool: true},
		},
		{
			name: "market_hours_alias",
			line: "/mh off",
			want: Command{Kind: CmdSetMarketHoursGuard, Bool: false},
		},
		{
			name: "max_orders_alias",
			line: "/mo 25",
			want: Command{Kind: CmdSetMaxOrders, Int: 25},
		},
		{
			name: "mode_live",
			line: "/mode live",
			want: Command{Kind: CmdSetMode, Str: "live"},
		},
		{
			name: "add_symbol_uppercased",
			line: "/a reliance",
			want: Command{Kind: CmdAddSymbol, Symbol: "RELIANCE"},
		},
		{
			name: "remove_symbol_alias",
			line: "/rm TCS",
			want: Command{Kind: CmdRemoveSymbol, Symbol: "TCS"},
		},
		{
			name: "clear_state_alias",
			line: "/cs",
			want: Command{Kind: CmdClearState},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSlash(tt.line, now)
			require.NoError(t, err)

			tt.want.Source = SourceCLI
			tt.want.ReceivedAt = now
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSlashErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"empty", "   "},
		{"unknown_command", "/frobnicate"},
		{"missing_on_off", "/buy maybe"},
		{"bad_percent", "/sl two"},
		{"percent_out_of_range", "/sl 150"},
		{"zero_percent", "/tp 0"},
		{"bad_max_orders", "/mo zero"},
		{"max_orders_below_one", "/mo 0"},
		{"bad_mode", "/mode demo"},
		{"add_missing_symbol", "/add"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSlash(tt.line, time.Now())
			assert.ErrorIs(t, err, ErrMalformedCommand)
		})
	}
}

func TestParseSlashSentinels(t *testing.T) {
	t.Parallel()

	_, err := ParseSlash("/quit", time.Now())
	assert.ErrorIs(t, err, ErrQuitCommand)
	_, err = ParseSlash("/q", time.Now())
	assert.ErrorIs(t, err, ErrQuitCommand)
	_, err = ParseSlash("/help", time.Now())
	assert.ErrorIs(t, err, ErrHelpCommand)
}

func TestCommandValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Command{Kind: CmdSetKillSwitch, Bool: true}.Validate())
	assert.NoError(t, Command{Kind: CmdSetStopLoss, Pct: 0.05}.Validate())
	assert.Error(t, Command{Kind: CmdSetStopLoss, Pct: 1.5}.Validate())
	assert.Error(t, Command{Kind: CmdSetMaxPosPct, Pct: 0.001}.Validate())
	assert.Error(t, Command{Kind: CmdSetMode, Str: "demo"}.Validate())
	assert.Error(t, Command{Kind: CmdAddSymbol}.Validate())
	assert.Error(t, Command{Kind: "NOT_A_KIND"}.Validate())
}

func TestQueueBoundedAndOrdered(t *testing.T) {
	t.Parallel()

	q := NewCommandQueue(2)
	require.NoError(t, q.Enqueue(Command{Kind: CmdSetKillSwitch, Bool: true}))
	require.NoError(t, q.Enqueue(Command{Kind: CmdSetKillSwitch, Bool: false}))
	assert.ErrorIs(t, q.Enqueue(Command{Kind: CmdSetKillSwitch}), ErrQueueFull)

	cmds := q.Drain()
	require.Len(t, cmds, 2)
	assert.True(t, cmds[0].Bool)
	assert.False(t, cmds[1].Bool)
	assert.Empty(t, q.Drain())

	q.Close()
	assert.ErrorIs(t, q.Enqueue(Command{Kind: CmdSetKillSwitch}), ErrQueueClosed)
}

func TestQueueCloseRacingEnqueueDoesNotPanic(t *testing.T) {
	t.Parallel()

	// Surfaces keep enqueuing while the loop shuts the queue down; a late
	// enqueue must get ErrQueueClosed, never a send on a closed channel.
	for i := 0; i < 500; i++ {
		q := NewCommandQueue(4)

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					_ = q.Enqueue(Command{Kind: CmdSetKillSwitch})
				}
			}()
		}
		q.Close()
		wg.Wait()

		assert.ErrorIs(t, q.Enqueue(Command{Kind: CmdSetKillSwitch}), ErrQueueClosed)
	}
}
