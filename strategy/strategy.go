package strategy

import (
	"encoding/json"

	"github.com/rustyeddy/tradeloop/market"
)

// Signal is the per-symbol, per-tick strategy verdict.
type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Signals appear in snapshots and web payloads as their names.
func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	default:
		*s = Hold
	}
	return nil
}

// Strategy turns a stream of quotes into signals. Update is called once per
// tick per watched symbol; implementations keep per-symbol state internally.
type Strategy interface {
	Name() string
	Reset()
	Update(q market.Quote) Signal
}

var registry = make(map[string]Strategy)

func Register(name string, s Strategy) {
	registry[name] = s
}

func Get(name string) Strategy {
	return registry[name]
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
