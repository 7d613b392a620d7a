package database

import (
	"context"
)

type TransactionRepository interface {
	Execute(ctx context.Context, transactionBuilder *TransactionBuilder) error
}

type transactionRepo struct {
	store *Store
}

func NewTransactionRepository(store *Store) TransactionRepository {
	return &transactionRepo{store: store}
}

func (r *transactionRepo) Execute(ctx context.Context, transactionBuilder *TransactionBuilder) error {
	return r.store.TransactWrite(ctx, transactionBuilder)
}
