package service

import (
	"context"
	"time"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// TickerStream — WS-источник живых цен (публичный клиент гейтвея).
type TickerStream interface {
	StreamTickers(ctx context.Context, symbols []string) <-chan models.Ticker
}

// StreamWorker слушает WS-тикеры и дросселированно дописывает last_price
// в снапшоты. Минутный REST-рефреш остаётся источником истины, поток
// только сокращает задержку между тиками.
type StreamWorker struct {
	store  SnapStore
	stream TickerStream
	flush  time.Duration

	now func() time.Time
}

func NewStreamWorker(store SnapStore, stream TickerStream) *StreamWorker {
	return &StreamWorker{
		store:  store,
		stream: stream,
		flush:  10 * time.Second,
		now:    time.Now,
	}
}

// Run блокируется до отмены контекста. Снапшоты последней даты
// перечитываются раз в флаш, чтобы подхватывать новые символы
// после дневного джоба.
func (w *StreamWorker) Run(ctx context.Context) error {
	latest, err := w.store.LatestDate(ctx)
	if err != nil {
		return err
	}
	if latest.IsZero() {
		logger.Warn("[STREAM] нет данных диапазонов, поток не запущен")
		return nil
	}

	snaps, err := w.store.SnapshotsForDate(ctx, latest)
	if err != nil {
		return err
	}
	symbols := make([]string, 0, len(snaps))
	for sym := range snaps {
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		logger.Warn("[STREAM] пустой список символов, поток не запущен")
		return nil
	}

	tickers := w.stream.StreamTickers(ctx, symbols)
	pending := make(map[string]models.Ticker)

	flush := time.NewTicker(w.flush)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case t, ok := <-tickers:
			if !ok {
				return nil
			}
			pending[helper.SymbolOf(t.Contract)] = t

		case <-flush.C:
			if len(pending) == 0 {
				continue
			}
			now := w.now()
			for sym, t := range pending {
				sn, ok := snaps[sym]
				if !ok {
					continue
				}
				amp := amplitude(sn.High20, sn.Low20)
				ratio := positionRatio(t.Last, sn.High20, sn.Low20)
				if err := w.store.RefreshTick(ctx, sym, latest, t.Last, amp, ratio, t.Volume24hSettle, now); err != nil {
					logger.Warn("[STREAM] %s не обновлён: %v", sym, err)
				}
			}
			pending = make(map[string]models.Ticker)

			// раз в флаш проверяем, не появилась ли свежая дата
			if cur, err := w.store.LatestDate(ctx); err == nil && cur.After(latest) {
				latest = cur
				if fresh, err := w.store.SnapshotsForDate(ctx, latest); err == nil {
					snaps = fresh
				}
			}
		}
	}
}
