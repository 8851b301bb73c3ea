// Package pg bootstraps the PostgreSQL layer on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (populated from the environment
// via caarlos0/env), retrying while the database comes up. Migrate applies
// goose migrations from an fs.FS, normally the embedded migrations package.
// Healthcheck adapts the pool to a readiness check and WithTx wraps a
// commit-or-rollback transaction.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//		return err
//	}
//
// The Is*Error helpers classify driver errors so store implementations can
// map them to domain errors.
package pg
