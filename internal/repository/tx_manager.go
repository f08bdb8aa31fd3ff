package repository

import "context"

// トランザクション内で使う約束。
// 残高の更新とログの追記は必ず同じTxで行う。
type TxRepos interface {
	Balances() BalanceRepository
	Transactions() TransactionRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
