package service

import (
	"context"
	"time"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// MarketData — чем апдейтеру отвечает биржа (публичный клиент гейтвея).
type MarketData interface {
	ListContracts(ctx context.Context) ([]models.ContractSpec, error)
	Candles(ctx context.Context, symbol string, from, to time.Time, interval string) ([]models.Candle, error)
	Tickers(ctx context.Context, symbols []string) (map[string]models.Ticker, error)
}

// SnapStore — персистентная часть (см. Store).
type SnapStore interface {
	LatestDate(ctx context.Context) (time.Time, error)
	LastDates(ctx context.Context) (map[string]time.Time, error)
	SnapshotsForDate(ctx context.Context, date time.Time) (map[string]models.Snapshot, error)
	UpsertDaily(ctx context.Context, sn models.Snapshot) (bool, error)
	RefreshTick(ctx context.Context, symbol string, date time.Time,
		last, amplitude, ratio, volume24h float64, now time.Time) error
}

// Updater гоняет оба джоба прайс-стора: дневной пересчёт диапазонов
// и минутный рефреш последних цен.
type Updater struct {
	store  SnapStore
	market MarketData
	days   int

	now func() time.Time
}

func NewUpdater(store SnapStore, market MarketData, days int) *Updater {
	if days <= 0 {
		days = 20
	}
	return &Updater{
		store:  store,
		market: market,
		days:   days,
		now:    time.Now,
	}
}

// RunDaily пересчитывает диапазоны по всем контрактам биржи.
// Пересчитываем только тех, у кого нет записи или запись старее вчера;
// ошибка по одному символу не валит остальных.
func (u *Updater) RunDaily(ctx context.Context) error {
	logger.Info("[RANGE] старт дневного пересчёта (N=%d)", u.days)

	existing, err := u.store.LastDates(ctx)
	if err != nil {
		return err
	}
	logger.Info("[RANGE] в базе %d символов", len(existing))

	contracts, err := u.market.ListContracts(ctx)
	if err != nil {
		return err
	}
	logger.Info("[RANGE] на бирже %d живых контрактов", len(contracts))

	today := dateOf(u.now())
	yesterday := today.AddDate(0, 0, -1)

	var newCount, updCount, skipCount int
	for _, spec := range contracts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		last, known := existing[spec.Symbol]
		if known && !dateOf(last).Before(yesterday) {
			continue // уже посчитан за вчера
		}

		sn, cErr := u.computeDaily(ctx, spec.Symbol, today, yesterday)
		if cErr != nil {
			logger.Warn("[RANGE] %s пропущен: %v", spec.Symbol, cErr)
			skipCount++
			continue
		}

		inserted, uErr := u.store.UpsertDaily(ctx, sn)
		if uErr != nil {
			logger.Error("[RANGE] %s не сохранён: %v", spec.Symbol, uErr)
			skipCount++
			continue
		}
		if !inserted {
			// запись за эту дату уже есть — первый писатель победил
			continue
		}
		if known {
			updCount++
		} else {
			newCount++
		}
	}

	logger.Info("[RANGE] дневной пересчёт готов: новых=%d обновлено=%d пропущено=%d",
		newCount, updCount, skipCount)
	return nil
}

// computeDaily тянет дневные свечи и считает диапазон по закрытиям.
func (u *Updater) computeDaily(ctx context.Context, symbol string, today, yesterday time.Time) (models.Snapshot, error) {
	from := yesterday.AddDate(0, 0, -(u.days - 1))
	candles, err := u.market.Candles(ctx, symbol, from, today, "1d")
	if err != nil {
		return models.Snapshot{}, err
	}

	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}

	rc, err := computeRange(closes, u.days)
	if err != nil {
		return models.Snapshot{}, err
	}

	return models.Snapshot{
		Symbol:        symbol,
		High20:        rc.High,
		Low20:         rc.Low,
		LastPrice:     rc.Last,
		Amplitude:     rc.Amplitude,
		PositionRatio: rc.PositionRatio,
		Volume24h:     0, // заполнит минутный рефреш
		UpdateDate:    yesterday,
		UpdateTime:    u.now(),
	}, nil
}

// RefreshTicks обновляет last_price/amplitude/position_ratio/volume_24h
// по всем символам последней даты. High/low остаются дневными.
func (u *Updater) RefreshTicks(ctx context.Context) error {
	latest, err := u.store.LatestDate(ctx)
	if err != nil {
		return err
	}
	if latest.IsZero() {
		logger.Warn("[TICK] нет данных диапазонов — рефрешить нечего")
		return nil
	}

	snaps, err := u.store.SnapshotsForDate(ctx, latest)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(snaps))
	for sym := range snaps {
		symbols = append(symbols, sym)
	}

	tickers, err := u.market.Tickers(ctx, symbols)
	if err != nil {
		return err
	}

	now := u.now()
	updated := 0
	for sym, sn := range snaps {
		t, ok := tickers[sym]
		if !ok || t.Last <= 0 {
			continue
		}

		amp := amplitude(sn.High20, sn.Low20)
		ratio := positionRatio(t.Last, sn.High20, sn.Low20)
		if err := u.store.RefreshTick(ctx, sym, latest, t.Last, amp, ratio, t.Volume24hSettle, now); err != nil {
			logger.Error("[TICK] %s не обновлён: %v", sym, err)
			continue
		}
		updated++
	}

	logger.Info("[TICK] рефреш готов: %d из %d символов", updated, len(snaps))
	return nil
}

// dateOf обнуляет время, оставляя дату.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
