package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
)

// Candles — свечи contract за [from, to], от старых к новым (так отдаёт Gate).
func (c *Client) Candles(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("contract", helper.Contract(symbol))
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", interval)

	var raw []candleResp
	if err := c.getJSON(ctx, "/futures/usdt/candlesticks", q.Encode(), false, &raw); err != nil {
		return nil, fmt.Errorf("Candles %s: %w", symbol, err)
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, r := range raw {
		candles = append(candles, r.toCandle())
	}
	return candles, nil
}
