package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the durable journal backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Record(t Transition) error {
	_, err := j.db.Exec(`
		INSERT INTO order_transitions
		(order_id, at, symbol, side, quantity, price, mode, status, reason, broker_order_id, is_exit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OrderID, t.At.UTC(), t.Symbol, t.Side, t.Quantity, t.Price,
		t.Mode, t.Status, t.Reason, t.BrokerOrderID, boolToInt(t.IsExit),
	)
	return err
}

func (j *SQLite) OpenSubmitted() ([]Transition, error) {
	rows, err := j.db.Query(`
		SELECT t.order_id, t.at, t.symbol, t.side, t.quantity, t.price,
		       t.mode, t.status, t.reason, t.broker_order_id, t.is_exit
		FROM order_transitions t
		JOIN (
			SELECT order_id, MAX(seq) AS seq
			FROM order_transitions
			GROUP BY order_id
		) last ON t.order_id = last.order_id AND t.seq = last.seq
		WHERE t.status = 'SUBMITTED'
		ORDER BY t.seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransitions(rows)
}

func (j *SQLite) ListBySymbol(symbol string, limit int) ([]Transition, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.Query(`
		SELECT order_id, at, symbol, side, quantity, price,
		       mode, status, reason, broker_order_id, is_exit
		FROM order_transitions
		WHERE symbol = ?
		ORDER BY seq DESC
		LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransitions(rows)
}

func (j *SQLite) ListBetween(start, end time.Time) ([]Transition, error) {
	rows, err := j.db.Query(`
		SELECT order_id, at, symbol, side, quantity, price,
		       mode, status, reason, broker_order_id, is_exit
		FROM order_transitions
		WHERE at >= ? AND at < ?
		ORDER BY seq ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransitions(rows)
}

func (j *SQLite) Summarize(since time.Time) (Summary, error) {
	var s Summary

	err := j.db.QueryRow(`
		SELECT COUNT(DISTINCT order_id) FROM order_transitions WHERE at >= ?`,
		since.UTC()).Scan(&s.TotalOrders)
	if err != nil {
		return Summary{}, err
	}

	err = j.db.QueryRow(`
		SELECT COUNT(*)
		FROM order_transitions t
		JOIN (
			SELECT order_id, MAX(seq) AS seq
			FROM order_transitions
			WHERE at >= ?
			GROUP BY order_id
		) last ON t.order_id = last.order_id AND t.seq = last.seq
		WHERE t.status IN ('FILLED', 'REJECTED', 'CANCELLED', 'FAILED')`,
		since.UTC()).Scan(&s.ClosedOrders)
	if err != nil {
		return Summary{}, err
	}

	s.OpenOrders = s.TotalOrders - s.ClosedOrders
	return s, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func scanTransitions(rows *sql.Rows) ([]Transition, error) {
	var out []Transition
	for rows.Next() {
		var t Transition
		var isExit int
		if err := rows.Scan(
			&t.OrderID, &t.At, &t.Symbol, &t.Side, &t.Quantity, &t.Price,
			&t.Mode, &t.Status, &t.Reason, &t.BrokerOrderID, &isExit,
		); err != nil {
			return nil, err
		}
		t.IsExit = isExit != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
