package journal

const schema = `
CREATE TABLE IF NOT EXISTS order_transitions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL,
	at DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	broker_order_id TEXT NOT NULL DEFAULT '',
	is_exit INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transitions_order ON order_transitions(order_id, seq);
CREATE INDEX IF NOT EXISTS idx_transitions_symbol_at ON order_transitions(symbol, at);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON order_transitions(at);
`
