// Package repository implements typed, streaming access to the two
// relational pools the dispatcher depends on: mvp (the sources
// catalog) and pd (the process audit/assignment table). Pool
// construction follows the same open-then-ping sequence as
// internal/util/stdpool.OpenMySQLAsTarget in the teacher repository.
package repository

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// openMySQLPool opens a *sql.DB against dsn, pings it once to fail
// fast on a bad connection string, and caps it at maxConns open
// connections.
func openMySQLPool(ctx context.Context, name, dsn string, maxConns uint32) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: opening pool", name)
	}

	db.SetMaxOpenConns(int(maxConns))

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "%s: pinging pool", name)
	}

	log.WithField("pool", name).Info("repository: connection pool established")
	return db, nil
}
