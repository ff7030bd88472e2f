package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

const wsURL = "wss://fx-ws.gateio.ws/v4/ws/usdt"

// StreamTickers — WS-поток тикеров по списку символов с переподключением.
// Держит last_price свежим между минутными тиками; REST-рефреш остаётся
// источником истины, поток — только ускорение.
func (c *Client) StreamTickers(ctx context.Context, symbols []string) <-chan models.Ticker {
	ch := make(chan models.Ticker)
	go func() {
		defer close(ch)

		if len(symbols) == 0 {
			return
		}
		contracts := make([]string, 0, len(symbols))
		for _, s := range symbols {
			contracts = append(contracts, helper.Contract(s))
		}

		dialer := &websocket.Dialer{}
		retryN := 0
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			conn, _, err := dialer.Dial(c.wsBaseURL, nil)
			if err != nil {
				retryN++
				logger.Warn("[WS] dial error (%d): %v", retryN, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(300*min64(int64(retryN), 10)) * time.Millisecond):
				}
				continue
			}
			retryN = 0

			sub := map[string]any{
				"time":    time.Now().Unix(),
				"channel": "futures.tickers",
				"event":   "subscribe",
				"payload": contracts,
			}
			if err := conn.WriteJSON(sub); err != nil {
				logger.Warn("[WS] subscribe error: %v", err)
				_ = conn.Close()
				continue
			}
			logger.Info("[WS] подписка futures.tickers: %d контрактов", len(contracts))

			// keepalive ping, иначе Gate рвёт соединение
			stopPing := make(chan struct{})
			go func() {
				t := time.NewTicker(15 * time.Second)
				defer t.Stop()
				for {
					select {
					case <-stopPing:
						return
					case <-ctx.Done():
						return
					case <-t.C:
						_ = conn.WriteJSON(map[string]any{
							"time":    time.Now().Unix(),
							"channel": "futures.ping",
						})
					}
				}
			}()

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					close(stopPing)
					_ = conn.Close()
					logger.Warn("[WS] read error: %v", err)
					break
				}

				var frame struct {
					Channel string       `json:"channel"`
					Event   string       `json:"event"`
					Result  []tickerResp `json:"result"`
				}
				if err := json.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Channel != "futures.tickers" || frame.Event != "update" {
					continue
				}
				for _, r := range frame.Result {
					t := r.toTicker()
					if t.Last <= 0 {
						continue
					}
					select {
					case <-ctx.Done():
						close(stopPing)
						_ = conn.Close()
						return
					case ch <- t:
					}
				}
			}
		}
	}()
	return ch
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
