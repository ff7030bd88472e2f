package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"auto_trader/internal/errs"
	"auto_trader/internal/models"
	"auto_trader/pkg/db"
)

// Store — доступ к monitor_list и acct_info. CRUD по операторским полям
// живёт в вебе; движку отсюда нужны только выборки и смена статусов.
type Store struct {
	txm *db.PgTxManager
}

func New(txm *db.PgTxManager) *Store {
	return &Store{txm: txm}
}

const monitorColumns = `id, account_id, symbol, strategy_type, allocated_money,
	leverage, take_profit, sync_status, COALESCE(position_side, ''), is_active,
	COALESCE(last_sync_time, 'epoch'::timestamptz)`

func scanMonitor(row pgx.Row) (models.Monitor, error) {
	var (
		m         models.Monitor
		money, tp float64
		strategy  string
		status    string
		side      string
	)
	err := row.Scan(&m.ID, &m.AccountID, &m.Symbol, &strategy, &money,
		&m.Leverage, &tp, &status, &side, &m.IsActive, &m.LastSyncTime)
	if err != nil {
		return models.Monitor{}, err
	}
	m.StrategyType = models.StrategyType(strategy)
	m.SyncStatus = models.SyncStatus(status)
	m.PositionSide = models.PositionSide(side)
	m.AllocatedMoney = decimal.NewFromFloat(money)
	m.TakeProfit = decimal.NewFromFloat(tp)
	return m, nil
}

// ListActive — активные мониторы аккаунта (все статусы: waiting для
// открытия, opened для тейка, closed держит символ под защитой свипа).
func (s *Store) ListActive(ctx context.Context, accountID int64) (monitors []models.Monitor, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.ListActive")
		}
	}()

	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx,
			`SELECT `+monitorColumns+` FROM monitor_list
			 WHERE account_id = $1 AND is_active = true
			 ORDER BY symbol, strategy_type`, accountID)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			m, sErr := scanMonitor(rows)
			if sErr != nil {
				return sErr
			}
			monitors = append(monitors, m)
		}
		return rows.Err()
	})
	return monitors, err
}

// ActiveAccounts — аккаунты, у которых есть хоть один активный монитор,
// вместе с API-ключами.
func (s *Store) ActiveAccounts(ctx context.Context) (accounts []models.Account, err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.ActiveAccounts")
		}
	}()

	err = s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx,
			`SELECT a.acct_id, a.acct_name, a.apikey, a.secretkey
			 FROM acct_info a
			 WHERE a.acct_id IN (SELECT DISTINCT account_id FROM monitor_list WHERE is_active = true)
			 ORDER BY a.acct_id`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			var a models.Account
			if sErr := rows.Scan(&a.ID, &a.Name, &a.APIKey, &a.APISecret); sErr != nil {
				return sErr
			}
			accounts = append(accounts, a)
		}
		return rows.Err()
	})
	return accounts, err
}

// MarkOpened: waiting -> opened с направлением. Одна транзакция на переход;
// вызывается только после успешного ответа биржи.
func (s *Store) MarkOpened(ctx context.Context, monitorID int64, side models.PositionSide) (err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.MarkOpened")
		}
	}()

	return s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, eErr := tx.Exec(ctx,
			`UPDATE monitor_list
			 SET sync_status = $2, position_side = $3, last_sync_time = $4
			 WHERE id = $1`,
			monitorID, models.StatusOpened, string(side), time.Now())
		return eErr
	})
}

// MarkClosed: opened -> closed (по тейку или по таймауту без позиции).
func (s *Store) MarkClosed(ctx context.Context, monitorID int64) (err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.MarkClosed")
		}
	}()

	return s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, eErr := tx.Exec(ctx,
			`UPDATE monitor_list
			 SET sync_status = $2, last_sync_time = $3
			 WHERE id = $1`,
			monitorID, models.StatusClosed, time.Now())
		return eErr
	})
}

// SetPositionSide дописывает направление, когда оно восстановлено
// из живой позиции (знак size).
func (s *Store) SetPositionSide(ctx context.Context, monitorID int64, side models.PositionSide) (err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.SetPositionSide")
		}
	}()

	return s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, eErr := tx.Exec(ctx,
			`UPDATE monitor_list SET position_side = $2 WHERE id = $1`,
			monitorID, string(side))
		return eErr
	})
}

// Touch обновляет last_sync_time, не трогая статус.
func (s *Store) Touch(ctx context.Context, monitorID int64) (err error) {
	defer func() {
		if err != nil {
			err = errs.Persistence(err, "Store.Touch")
		}
	}()

	return s.txm.RunMaster(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, eErr := tx.Exec(ctx,
			`UPDATE monitor_list SET last_sync_time = $2 WHERE id = $1`,
			monitorID, time.Now())
		return eErr
	})
}
