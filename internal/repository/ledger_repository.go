package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// 出庫数が現在庫を超えている
var ErrInsufficientStock = errors.New("insufficient stock")

// 残高（StockItem）の永続化を約束。
// 増減は条件付きの1文で行い、read-modify-writeの競合を作らない。
type BalanceRepository interface {
	// 現在庫を取得。rowが無ければ0。
	GetBalance(ctx context.Context, userID int64, productName string) (int64, error)

	// insert-or-increment。無ければqtyで新規作成、あればquantity+=qty。
	// 更新後の数量を返す。
	UpsertIncrease(ctx context.Context, userID int64, productName string, qty int64) (int64, error)

	// 在庫が足りるときだけ減算。足りなければErrInsufficientStock。
	// 更新後の数量を返す。
	DecreaseIfEnough(ctx context.Context, userID int64, productName string, qty int64) (int64, error)

	// 商品画像の参照を設定
	SetImageRef(ctx context.Context, userID int64, productName string, ref string) error

	// 所有者の全StockItemを取得（他ユーザーの分は含まない）
	ListByUserID(ctx context.Context, userID int64) ([]model.StockItem, error)

	// 1件取得（画像参照の取り出しに使う）
	FindByOwnerProduct(ctx context.Context, userID int64, productName string) (*model.StockItem, error)
}

// 入出庫ログの永続化を約束。追記のみで更新・削除はない。
type TransactionRepository interface {
	Append(ctx context.Context, record *model.TransactionRecord) error

	// [from, toExclusive) の範囲を新しい順で取得
	ListByUserIDBetween(ctx context.Context, userID int64, from time.Time, toExclusive time.Time) ([]model.TransactionRecord, error)
}
