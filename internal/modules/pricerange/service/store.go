package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"auto_trader/internal/errs"
	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

// Store — таблица price_range_20d. На символ и дату — не больше одной
// строки; дневной джоб пишет по правилу «кто первый, тот и прав».
type Store struct {
	txm *db.PgTxManager
}

func NewStore(txm *db.PgTxManager) *Store {
	return &Store{txm: txm}
}

// LatestDate — самая свежая update_date в таблице (нулевое время, если пусто).
func (s *Store) LatestDate(ctx context.Context) (latest time.Time, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.LatestDate")
		}
	}()

	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var d *time.Time
		if qErr := tx.QueryRow(ctx,
			`SELECT MAX(update_date) FROM price_range_20d`).Scan(&d); qErr != nil {
			return qErr
		}
		if d != nil {
			latest = *d
		}
		return nil
	})
	return latest, err
}

// FreshSnapshots — снапшоты последней даты с update_time не старше
// staleAfter, ключ — символ. Протухшие записи сюда не попадают:
// для движка их нет.
func (s *Store) FreshSnapshots(ctx context.Context, staleAfter time.Duration) (snaps map[string]models.Snapshot, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.FreshSnapshots")
		}
	}()

	snaps = make(map[string]models.Snapshot)
	cutoff := time.Now().Add(-staleAfter)

	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx,
			`SELECT symbol, high_price_20d, low_price_20d, last_price,
			        amplitude, position_ratio, COALESCE(volume_24h, 0),
			        update_date, update_time
			 FROM price_range_20d
			 WHERE update_date = (SELECT MAX(update_date) FROM price_range_20d)
			   AND update_time >= $1`, cutoff)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			var sn models.Snapshot
			if sErr := rows.Scan(&sn.Symbol, &sn.High20, &sn.Low20, &sn.LastPrice,
				&sn.Amplitude, &sn.PositionRatio, &sn.Volume24h,
				&sn.UpdateDate, &sn.UpdateTime); sErr != nil {
				return sErr
			}
			snaps[sn.Symbol] = sn
		}
		return rows.Err()
	})
	return snaps, err
}

// LastDates — по каждому символу его последняя update_date
// (дневному джобу, чтобы понять, кого пересчитывать).
func (s *Store) LastDates(ctx context.Context) (dates map[string]time.Time, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.LastDates")
		}
	}()

	dates = make(map[string]time.Time)
	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx,
			`SELECT symbol, MAX(update_date) FROM price_range_20d GROUP BY symbol`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			var (
				sym string
				d   time.Time
			)
			if sErr := rows.Scan(&sym, &d); sErr != nil {
				return sErr
			}
			dates[sym] = d
		}
		return rows.Err()
	})
	return dates, err
}

// SnapshotsForDate — все снапшоты конкретной даты, включая протухшие
// (минутному рефрешу нужны high/low для пересчёта ratio).
func (s *Store) SnapshotsForDate(ctx context.Context, date time.Time) (snaps map[string]models.Snapshot, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.SnapshotsForDate")
		}
	}()

	snaps = make(map[string]models.Snapshot)
	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx,
			`SELECT symbol, high_price_20d, low_price_20d, last_price,
			        amplitude, position_ratio, COALESCE(volume_24h, 0),
			        update_date, update_time
			 FROM price_range_20d
			 WHERE update_date = $1`, date)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			var sn models.Snapshot
			if sErr := rows.Scan(&sn.Symbol, &sn.High20, &sn.Low20, &sn.LastPrice,
				&sn.Amplitude, &sn.PositionRatio, &sn.Volume24h,
				&sn.UpdateDate, &sn.UpdateTime); sErr != nil {
				return sErr
			}
			snaps[sn.Symbol] = sn
		}
		return rows.Err()
	})
	return snaps, err
}

// UpsertDaily вставляет дневной снапшот. Повторный запуск за ту же дату —
// no-op (ON CONFLICT DO NOTHING), возвращает false.
func (s *Store) UpsertDaily(ctx context.Context, sn models.Snapshot) (inserted bool, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.UpsertDaily")
		}
	}()

	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, eErr := tx.Exec(ctx,
			`INSERT INTO price_range_20d
			   (symbol, high_price_20d, low_price_20d, last_price,
			    amplitude, position_ratio, volume_24h, update_date, update_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (symbol, update_date) DO NOTHING`,
			sn.Symbol, sn.High20, sn.Low20, sn.LastPrice,
			sn.Amplitude, sn.PositionRatio, sn.Volume24h, sn.UpdateDate, sn.UpdateTime)
		if eErr != nil {
			return eErr
		}
		inserted = tag.RowsAffected() > 0
		return nil
	})
	return inserted, err
}

// RefreshTick обновляет только живые поля снапшота; high/low не трогаем.
func (s *Store) RefreshTick(ctx context.Context, symbol string, date time.Time,
	last, amplitude, ratio, volume24h float64, now time.Time) (err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.RefreshTick")
		}
	}()

	return s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, eErr := tx.Exec(ctx,
			`UPDATE price_range_20d
			 SET last_price = $3, amplitude = $4, position_ratio = $5,
			     volume_24h = $6, update_time = $7
			 WHERE symbol = $1 AND update_date = $2`,
			symbol, date, last, amplitude, ratio, volume24h, now)
		return eErr
	})
}
