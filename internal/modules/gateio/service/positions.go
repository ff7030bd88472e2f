package service

import (
	"context"
	"fmt"
	"time"

	"auto_trader/internal/models"
)

// Positions — живые позиции аккаунта. Кеш на 3 секунды гасит частоту
// запросов внутри тика; force — для решений о закрытии, где свежесть
// важнее лимитов. Кеш перезаписывается целиком, не мержится.
func (c *Client) Positions(ctx context.Context, force bool) ([]models.LivePosition, error) {
	if !force {
		c.posMu.RLock()
		if !c.posCacheAt.IsZero() && time.Since(c.posCacheAt) < c.cacheTTL {
			cached := make([]models.LivePosition, len(c.posCache))
			copy(cached, c.posCache)
			c.posMu.RUnlock()
			return cached, nil
		}
		c.posMu.RUnlock()
	}

	var raw []positionResp
	if err := c.getJSON(ctx, "/futures/usdt/positions", "", true, &raw); err != nil {
		return nil, fmt.Errorf("Positions: %w", err)
	}

	next := make([]models.LivePosition, 0, len(raw))
	for _, r := range raw {
		if r.Size == 0 {
			continue
		}
		next = append(next, r.toPosition())
	}

	c.posMu.Lock()
	c.posCache = next
	c.posCacheAt = time.Now()
	c.posMu.Unlock()

	res := make([]models.LivePosition, len(next))
	copy(res, next)
	return res, nil
}

// InvalidatePositions сбрасывает кеш после ордеров.
func (c *Client) InvalidatePositions() {
	c.posMu.Lock()
	c.posCacheAt = time.Time{}
	c.posMu.Unlock()
}
