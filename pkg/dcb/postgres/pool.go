package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"godcb/pkg/dcb"
)

// openPool builds a pgxpool.Pool from cfg, wiring MinConns/MaxConns from
// PoolSize/MaxOverflow, MaxConnLifetime from ConnMaxAge, a BeforeAcquire
// ping hook from PrePing, and the connect/idle-in-transaction timeouts.
func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, &dcb.DataError{
			EventStoreError: dcb.EventStoreError{Op: "openPool", Err: err},
			Field:           "dsn",
		}
	}

	if cfg.PoolSize > 0 {
		poolCfg.MinConns = cfg.PoolSize
		poolCfg.MaxConns = cfg.PoolSize + cfg.MaxOverflow
	}
	if cfg.ConnMaxAge > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxAge
	}
	if cfg.PrePing {
		poolCfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			return conn.Ping(ctx) == nil
		}
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.IdleInTransactionSessionTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] =
			fmt.Sprintf("%d", cfg.IdleInTransactionSessionTimeout.Milliseconds())
	}
	if cfg.GetPassword != nil {
		poolCfg.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			password, err := cfg.GetPassword(ctx)
			if err != nil {
				return err
			}
			cc.Password = password
			return nil
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &dcb.InterfaceError{
			EventStoreError: dcb.EventStoreError{Op: "openPool", Err: err},
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, &dcb.InterfaceError{
			EventStoreError: dcb.EventStoreError{Op: "openPool", Err: fmt.Errorf("ping failed: %w", err)},
		}
	}
	return pool, nil
}
