package postgres

import (
	"context"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jackc/pgx/v5"
)

type txStore struct {
	tx  pgx.Tx
	ctx context.Context // context the transaction was started with
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *txStore) Close() error                   { return nil } // the pool stays open
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; pgx would turn this into a savepoint
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.ErrTxClosed
}

func (t *txStore) Users() store.Users { return &usersRepo{q: t.tx} }
func (t *txStore) VerificationTokens() store.Secrets {
	return &secretsRepo{q: t.tx, table: tableVerificationTokens}
}
func (t *txStore) MFACodes() store.Secrets { return &secretsRepo{q: t.tx, table: tableMFACodes} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx
