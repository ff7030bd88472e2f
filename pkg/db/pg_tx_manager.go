package db

import (
	"context"
	"fmt"

	"auto_trader/pkg/logger"
	"auto_trader/pkg/retry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	DSN string

	// Политика на получение соединения: 3 попытки
	// с линейным бэкоффом 1s/2s/3s.
	Acquire retry.Policy
}

type PgTxManager struct {
	poolMaster *pgxpool.Pool
	acquire    retry.Policy
}

func NewPgTxManager(poolMaster *pgxpool.Pool, acquire retry.Policy) *PgTxManager {
	return &PgTxManager{
		poolMaster: poolMaster,
		acquire:    acquire,
	}
}

func (m *PgTxManager) Close() {
	m.poolMaster.Close()
}

func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, conf.DSN)
	if err != nil {
		return nil, err
	}
	if err := conf.Acquire.Do(ctx, nil, func() error { return pool.Ping(ctx) }); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pool: %w", err)
	}
	return pool, nil
}

func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	options := pgx.TxOptions{
		IsoLevel: pgx.ReadCommitted,
	}
	return m.inTx(ctx, m.poolMaster, options, fn)
}

func (m *PgTxManager) Conn() Transaction {
	return m.poolMaster
}

func (m *PgTxManager) inTx(
	ctx context.Context,
	pool *pgxpool.Pool,
	options pgx.TxOptions,
	f func(ctxTx context.Context, tx pgx.Tx) error,
) error {
	var tx pgx.Tx
	// BeginTx забирает соединение из пула — здесь и работает политика ретраев.
	err := m.acquire.Do(ctx, nil, func() error {
		var bErr error
		tx, bErr = pool.BeginTx(ctx, options)
		return bErr
	})
	if err != nil {
		return fmt.Errorf("failed to begin tx, err: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Info("%v", p)
			_ = tx.Rollback(ctx)
			panic(p) // fallthrough panic after rollback on caught panic
		} else if err != nil {
			_ = tx.Rollback(ctx) // if error during computations
		} else {
			err = tx.Commit(ctx) // all good
		}
	}()

	err = f(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to run fn, err: %w", err)
	}

	return nil
}
