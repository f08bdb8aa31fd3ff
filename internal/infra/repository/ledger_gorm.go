package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	domainrepo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type balanceGormRepository struct {
	db *gorm.DB
}

// DI
func NewBalanceGormRepository(db *gorm.DB) domainrepo.BalanceRepository {
	return &balanceGormRepository{db: db}
}

// 現在庫を取得。rowが無ければ0。
func (r *balanceGormRepository) GetBalance(ctx context.Context, userID int64, productName string) (int64, error) {
	var item model.StockItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_name = ?", userID, productName).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return item.Quantity, nil
}

// insert-or-increment。
// SELECTしてからUPDATEすると同時入庫で更新が消えるため、
// ON CONFLICTの1文でDB側に加算させる。
func (r *balanceGormRepository) UpsertIncrease(ctx context.Context, userID int64, productName string, qty int64) (int64, error) {
	item := model.StockItem{
		UserID:      userID,
		ProductName: productName,
		Quantity:    qty,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("stock_items.quantity + ?", qty),
				"updated_at": time.Now(),
			}),
		}).
		Create(&item).Error
	if err != nil {
		return 0, err
	}

	// 同一Tx内で読み直して更新後の数量を返す
	return r.GetBalance(ctx, userID, productName)
}

// 在庫が足りるときだけ減らす。
// WHEREに quantity >= ? を入れた条件付きUPDATEなので、
// 並行した出庫が同じ在庫を二重に引くことはない。
func (r *balanceGormRepository) DecreaseIfEnough(ctx context.Context, userID int64, productName string, qty int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("user_id = ? AND product_name = ? AND quantity >= ?", userID, productName, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})

	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// row自体が無い場合も「在庫0から引こうとした」と同じ扱い
		return 0, domainrepo.ErrInsufficientStock
	}

	return r.GetBalance(ctx, userID, productName)
}

// 商品画像の参照を設定
func (r *balanceGormRepository) SetImageRef(ctx context.Context, userID int64, productName string, ref string) error {
	res := r.db.WithContext(ctx).
		Model(&model.StockItem{}).
		Where("user_id = ? AND product_name = ?", userID, productName).
		Update("image_ref", ref)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

// 所有者の全StockItemを取得
func (r *balanceGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.StockItem, error) {
	var items []model.StockItem

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("product_name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *balanceGormRepository) FindByOwnerProduct(ctx context.Context, userID int64, productName string) (*model.StockItem, error) {
	var item model.StockItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_name = ?", userID, productName).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &item, nil
}

type transactionGormRepository struct {
	db *gorm.DB
}

// DI
func NewTransactionGormRepository(db *gorm.DB) domainrepo.TransactionRepository {
	return &transactionGormRepository{db: db}
}

// 入出庫ログを追記。更新・削除のメソッドは意図的に無い。
func (r *transactionGormRepository) Append(ctx context.Context, record *model.TransactionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// [from, toExclusive) の範囲を新しい順で取得
func (r *transactionGormRepository) ListByUserIDBetween(ctx context.Context, userID int64, from time.Time, toExclusive time.Time) ([]model.TransactionRecord, error) {
	var records []model.TransactionRecord

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, toExclusive).
		Order("created_at DESC, id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}
