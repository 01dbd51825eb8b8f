package trade

import (
	"github.com/google/uuid"

	"github.com/talgya/tradewinds/internal/economy"
	"github.com/talgya/tradewinds/internal/social"
)

// TradeTransaction is the immutable record of one completed trade. Names are
// snapshots taken at trade time.
type TradeTransaction struct {
	ID         string         `json:"id"`
	GoodID     economy.GoodID `json:"good_id"`
	GoodName   string         `json:"good_name"`
	Quantity   int            `json:"quantity"`
	UnitPrice  float64        `json:"unit_price"`
	TotalPrice int            `json:"total_price"`
	CityID     social.CityID  `json:"city_id"`
	CityName   string         `json:"city_name"`
	Trader     string         `json:"trader"`
	IsBuy      bool           `json:"is_buy"`
	Timestamp  float64        `json:"timestamp"` // Game hours
}

func (s *System) record(trader string, g economy.TradeGood, c *social.City, qty, total int, buy bool) TradeTransaction {
	tx := TradeTransaction{
		ID:         uuid.NewString(),
		GoodID:     g.ID,
		GoodName:   g.Name,
		Quantity:   qty,
		UnitPrice:  float64(total) / float64(qty),
		TotalPrice: total,
		CityID:     c.ID,
		CityName:   c.Name,
		Trader:     trader,
		IsBuy:      buy,
		Timestamp:  s.now,
	}

	s.history[s.head] = tx
	s.head = (s.head + 1) % len(s.history)
	if s.count < len(s.history) {
		s.count++
	}

	if s.onTransaction != nil {
		s.onTransaction(tx)
	}
	return tx
}

// History returns the retained transactions, oldest first.
func (s *System) History() []TradeTransaction {
	out := make([]TradeTransaction, 0, s.count)
	start := (s.head - s.count + len(s.history)) % len(s.history)
	for i := 0; i < s.count; i++ {
		out = append(out, s.history[(start+i)%len(s.history)])
	}
	return out
}

// RecentTransactions returns up to n transactions, newest first.
func (s *System) RecentTransactions(n int) []TradeTransaction {
	n = min(max(n, 0), s.count)
	out := make([]TradeTransaction, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, s.history[(s.head-i+len(s.history))%len(s.history)])
	}
	return out
}

// TransactionCount returns how many transactions are retained.
func (s *System) TransactionCount() int { return s.count }
