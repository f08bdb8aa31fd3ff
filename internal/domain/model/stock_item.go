package model

import "time"

// 在庫の現在値。(user_id, product_name) で一意。
// quantityはその商品のTransactionRecordの符号付き合計と常に一致する。
// 全部出庫してもrowは残す（数量0＝「存在するが在庫なし」）。
type StockItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_stock_owner_product" json:"user_id"`
	ProductName string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_stock_owner_product" json:"product_name"`
	Quantity    int64     `gorm:"not null;default:0" json:"quantity"`
	ImageRef    string    `gorm:"type:varchar(255)" json:"image_ref,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
