package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"threadora-backend/internal/domain"
)

// TransactionManager implements domain.TransactionManager using pgx. The
// transaction handle travels in the context, so any repository call made
// with the derived context joins the same transaction.
type TransactionManager struct {
	db *pgxpool.Pool
}

func NewTransactionManager(db *pgxpool.Pool) domain.TransactionManager {
	return &TransactionManager{db: db}
}

func (tm *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := tm.db.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txKey struct{}
