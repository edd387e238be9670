package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradeloop/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the order journal",
	Long: `Query and display order lifecycle records from the SQLite journal.

Subcommands:
  symbol - List transitions for a symbol
  day    - List transitions on a specific day
  today  - List transitions recorded today

Examples:
  tradeloop journal symbol RELIANCE
  tradeloop journal today
  tradeloop journal day 2026-08-28`,
}

var journalSymbolCmd = &cobra.Command{
	Use:   "symbol <SYMBOL>",
	Short: "List order transitions for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSymbol,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List order transitions recorded today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List order transitions on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSymbolCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "data/order_journal.db", "path to SQLite journal DB")
	journalSymbolCmd.Flags().IntVarP(&journalLimit, "limit", "n", 50, "max rows")
}

func runJournalSymbol(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListBySymbol(args[0], journalLimit)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	printTransitions(recs)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return journalForDay(time.Now().UTC().Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return journalForDay(args[0])
}

func journalForDay(day string) error {
	start, end, err := dayBounds(day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListBetween(start, end)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	printTransitions(recs)
	return nil
}

func dayBounds(day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour), nil
}

func printTransitions(recs []journal.Transition) {
	if len(recs) == 0 {
		fmt.Println("no records")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tORDER\tSYMBOL\tSIDE\tQTY\tPRICE\tSTATUS\tREASON")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%s\t%s\n",
			r.At.UTC().Format("2006-01-02 15:04:05"),
			shortID(r.OrderID), r.Symbol, r.Side, r.Quantity, r.Price, r.Status, r.Reason)
	}
	w.Flush()
}

func shortID(id string) string {
	if len(id) > 10 {
		return id[:10]
	}
	return id
}
