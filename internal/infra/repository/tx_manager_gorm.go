package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	balances     repo.BalanceRepository
	transactions repo.TransactionRepository
}

func (r *txReposGorm) Balances() repo.BalanceRepository         { return r.balances }
func (r *txReposGorm) Transactions() repo.TransactionRepository { return r.transactions }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがerrorを返せば全体がrollbackされる。
// 残高の更新とログの追記が片方だけcommitされることはない。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			balances:     NewBalanceGormRepository(tx),
			transactions: NewTransactionGormRepository(tx),
		}
		return fn(r)
	})
}
