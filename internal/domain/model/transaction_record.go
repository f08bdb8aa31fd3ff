package model

import "time"

// 入出庫の種別
type AdjustmentKind string

const (
	KindIn  AdjustmentKind = "IN"
	KindOut AdjustmentKind = "OUT"
)

// 入出庫の履歴（append-only）。
// 書き込み後は不変。残高はこのログから導出できる。
type TransactionRecord struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"not null;index:idx_tx_owner_created" json:"user_id"`
	ProductName string         `gorm:"type:varchar(255);not null" json:"product_name"`
	Kind        AdjustmentKind `gorm:"type:varchar(10);not null" json:"kind"`
	Qty         int64          `gorm:"not null" json:"qty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime;index:idx_tx_owner_created" json:"created_at"`
}
