// Package repo implements the data persistence layer. This file bridges the
// connection pool and GORM: each pooled handle pins one driver connection
// and carries a GORM handle bound to exactly that connection, so the pool's
// liveness and recycle policy applies to the connection the ORM actually
// uses.
package repo

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/dbpool"
)

// GormConn is a pooled connection that exposes a GORM handle bound to it.
type GormConn interface {
	dbpool.Conn
	ORM() *gorm.DB
}

// mysqlConn pins a single *sql.Conn from the shared driver pool.
type mysqlConn struct {
	conn *sql.Conn
	orm  *gorm.DB
}

func (c *mysqlConn) Ping(ctx context.Context) error { return c.conn.PingContext(ctx) }
func (c *mysqlConn) Close() error                   { return c.conn.Close() }
func (c *mysqlConn) ORM() *gorm.DB                  { return c.orm }

// NewMySQLFactory returns a pool factory that pins one connection from
// sqlDB per handle and binds a GORM session to it. Closing the handle
// returns the driver connection to sqlDB, whose own max lifetime backstops
// the pool's recycle policy.
func NewMySQLFactory(sqlDB *sql.DB) dbpool.Factory {
	return func(ctx context.Context) (dbpool.Conn, error) {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			return nil, err
		}
		orm, err := OpenGormConn(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &mysqlConn{conn: conn, orm: orm}, nil
	}
}

// sqliteConn owns a dedicated single-connection SQLite handle.
type sqliteConn struct {
	orm *gorm.DB
}

func (c *sqliteConn) Ping(ctx context.Context) error {
	sqlDB, err := c.orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *sqliteConn) Close() error {
	sqlDB, err := c.orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (c *sqliteConn) ORM() *gorm.DB { return c.orm }

// NewSQLiteFactory returns a pool factory for the local fallback: each
// handle opens its own single-connection database on path so pooled
// handles never share a connection.
func NewSQLiteFactory(path string) dbpool.Factory {
	return func(ctx context.Context) (dbpool.Conn, error) {
		orm, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := orm.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
		}
		return &sqliteConn{orm: orm}, nil
	}
}
