package repo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/remindly/go-reminder-backend/internal/dbpool"

	"gorm.io/gorm"
)

// UnitOfWork runs database work on pooled connections. Do wraps the work in
// a transaction; View runs read-only queries without one. In both cases the
// handle is validated before use and returned to the pool on every exit
// path, with any rollback completing before the handle is released.
type UnitOfWork struct {
	pool *dbpool.Pool
	log  zerolog.Logger
}

// NewUnitOfWork builds a UnitOfWork over pool.
func NewUnitOfWork(pool *dbpool.Pool, log zerolog.Logger) *UnitOfWork {
	return &UnitOfWork{pool: pool, log: log}
}

// Do borrows a connection, opens a transaction on it, and runs fn. A nil
// return commits; an error or panic rolls back, and the panic is re-raised
// after the rollback. The borrowed handle is released after the transaction
// has fully resolved.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := u.pool.WithConn(ctx, func(ctx context.Context, c dbpool.Conn) error {
		gc, ok := c.(GormConn)
		if !ok {
			return fmt.Errorf("pool handed out %T, want repo.GormConn", c)
		}
		return gc.ORM().WithContext(ctx).Transaction(fn)
	})
	if err != nil {
		u.log.Error().Err(err).Msg("transactional unit failed")
	}
	return err
}

// View borrows a connection and runs fn directly, without a transaction.
// Intended for read-only query paths.
func (u *UnitOfWork) View(ctx context.Context, fn func(db *gorm.DB) error) error {
	err := u.pool.WithConn(ctx, func(ctx context.Context, c dbpool.Conn) error {
		gc, ok := c.(GormConn)
		if !ok {
			return fmt.Errorf("pool handed out %T, want repo.GormConn", c)
		}
		return fn(gc.ORM().WithContext(ctx))
	})
	if err != nil {
		u.log.Error().Err(err).Msg("read-only unit failed")
	}
	return err
}

// Ping validates one pooled connection end to end. Used by the health
// endpoint.
func (u *UnitOfWork) Ping(ctx context.Context) error {
	return u.pool.WithConn(ctx, func(ctx context.Context, c dbpool.Conn) error {
		return c.Ping(ctx)
	})
}

// Stats exposes the pool counters for diagnostics.
func (u *UnitOfWork) Stats() dbpool.Stats { return u.pool.Stats() }
