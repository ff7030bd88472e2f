package service

import (
	"context"
	"fmt"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
)

// Tickers — последние цены по списку символов одним запросом
// (эндпоинт отдаёт все контракты, фильтруем на месте).
func (c *Client) Tickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error) {
	var raw []tickerResp
	if err := c.getJSON(ctx, "/futures/usdt/tickers", "", false, &raw); err != nil {
		return nil, fmt.Errorf("Tickers: %w", err)
	}

	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		want[s] = struct{}{}
	}

	res := make(map[string]models.Ticker, len(symbols))
	for _, r := range raw {
		sym := helper.SymbolOf(r.Contract)
		if _, ok := want[sym]; !ok {
			continue
		}
		res[sym] = r.toTicker()
	}
	return res, nil
}
