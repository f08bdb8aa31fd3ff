package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 商品画像の保存先（参照だけをDBに持つ）
type BlobStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// Idempotency-Keyの重複検知。初回だけtrue。
type RequestDeduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

type StockInInput struct {
	ProductName    string
	Qty            int64
	Image          []byte
	IdempotencyKey string
}

type StockOutInput struct {
	ProductName    string
	Qty            int64
	IdempotencyKey string
}

type AdjustmentOutput struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type StockItemOutput struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	HasImage    bool   `json:"has_image"`
}

type TransactionOutput struct {
	ProductName string    `json:"product_name"`
	Kind        string    `json:"kind"`
	Qty         int64     `json:"qty"`
	CreatedAt   time.Time `json:"created_at"`
}

// InventoryUsecase は在庫台帳の業務ロジック。
// 読み取りはrepoを直接使い、入出庫だけTransactionManager経由で行う。
type InventoryUsecase struct {
	tx       repo.TransactionManager
	balances repo.BalanceRepository
	txLog    repo.TransactionRepository
	blobs    BlobStore
	deduper  RequestDeduper // nilなら冪等性チェックなし
}

func NewInventoryUsecase(
	tx repo.TransactionManager,
	balances repo.BalanceRepository,
	txLog repo.TransactionRepository,
	blobs BlobStore,
	deduper RequestDeduper,
) *InventoryUsecase {
	return &InventoryUsecase{
		tx:       tx,
		balances: balances,
		txLog:    txLog,
		blobs:    blobs,
		deduper:  deduper,
	}
}

// StockIn は入庫。残高の加算とログの追記を1つのTxで行う。
func (u *InventoryUsecase) StockIn(ctx context.Context, userID int64, in StockInInput) (AdjustmentOutput, error) {
	var out AdjustmentOutput

	name, err := u.validateAdjustment(ctx, userID, in.ProductName, in.Qty, in.IdempotencyKey)
	if err != nil {
		return out, err
	}

	//画像があれば先に保存して参照を得る（本体はDBに入れない）
	imageRef := ""
	if len(in.Image) > 0 {
		ref, err := u.blobs.Store(ctx, in.Image)
		if err != nil {
			return out, storeErr(err)
		}
		imageRef = ref
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		newQty, err := r.Balances().UpsertIncrease(ctx, userID, name, in.Qty)
		if err != nil {
			return err
		}

		if imageRef != "" {
			if err := r.Balances().SetImageRef(ctx, userID, name, imageRef); err != nil {
				return err
			}
		}

		if err := r.Transactions().Append(ctx, &model.TransactionRecord{
			UserID:      userID,
			ProductName: name,
			Kind:        model.KindIn,
			Qty:         in.Qty,
		}); err != nil {
			return err
		}

		out = AdjustmentOutput{ProductName: name, Quantity: newQty}
		return nil
	})
	if err != nil {
		//Txがrollbackされたら画像も残さない
		if imageRef != "" {
			_ = u.blobs.Delete(ctx, imageRef)
		}
		return AdjustmentOutput{}, storeErr(err)
	}

	return out, nil
}

// StockOut は出庫。在庫が足りなければ残高もログも変更しない。
func (u *InventoryUsecase) StockOut(ctx context.Context, userID int64, in StockOutInput) (AdjustmentOutput, error) {
	var out AdjustmentOutput

	name, err := u.validateAdjustment(ctx, userID, in.ProductName, in.Qty, in.IdempotencyKey)
	if err != nil {
		return out, err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		newQty, err := r.Balances().DecreaseIfEnough(ctx, userID, name, in.Qty)
		if err != nil {
			return err
		}

		if err := r.Transactions().Append(ctx, &model.TransactionRecord{
			UserID:      userID,
			ProductName: name,
			Kind:        model.KindOut,
			Qty:         in.Qty,
		}); err != nil {
			return err
		}

		out = AdjustmentOutput{ProductName: name, Quantity: newQty}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrInsufficientStock) {
			return AdjustmentOutput{}, ErrInsufficientStock
		}
		return AdjustmentOutput{}, storeErr(err)
	}

	return out, nil
}

// ListInventory は自分のStockItemだけを返す。
// 数量0のrowも返す（「存在するが在庫なし」を区別するため）。
func (u *InventoryUsecase) ListInventory(ctx context.Context, userID int64) ([]StockItemOutput, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	items, err := u.balances.ListByUserID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]StockItemOutput, 0, len(items))
	for _, item := range items {
		out = append(out, StockItemOutput{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			HasImage:    item.ImageRef != "",
		})
	}
	return out, nil
}

// GetReport は [from, to]（日付、両端含む）の自分の入出庫ログを新しい順で返す。
func (u *InventoryUsecase) GetReport(ctx context.Context, userID int64, from time.Time, to time.Time) ([]TransactionOutput, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	//from > to は空ではなくエラー
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	//toは日付指定なので翌日0時を排他上限にする
	records, err := u.txLog.ListByUserIDBetween(ctx, userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]TransactionOutput, 0, len(records))
	for _, rec := range records {
		out = append(out, TransactionOutput{
			ProductName: rec.ProductName,
			Kind:        string(rec.Kind),
			Qty:         rec.Qty,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return out, nil
}

// GetImage は自分の商品の画像を返す。
func (u *InventoryUsecase) GetImage(ctx context.Context, userID int64, productName string) ([]byte, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	name := strings.TrimSpace(productName)
	if name == "" {
		return nil, ErrInvalidProductName
	}

	item, err := u.balances.FindByOwnerProduct(ctx, userID, name)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr(err)
	}
	if item.ImageRef == "" {
		return nil, ErrNotFound
	}

	data, err := u.blobs.Retrieve(ctx, item.ImageRef)
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// 入出庫共通の事前チェック。storeに触る前に全部弾く。
func (u *InventoryUsecase) validateAdjustment(ctx context.Context, userID int64, productName string, qty int64, idemKey string) (string, error) {
	if userID <= 0 {
		return "", ErrUnauthorized
	}

	name := strings.TrimSpace(productName)
	if name == "" {
		return "", ErrInvalidProductName
	}

	if qty <= 0 {
		return "", ErrInvalidQuantity
	}

	//Idempotency-Keyが付いていれば再送を弾く。
	//keyはユーザーごとに分ける（別ユーザーの同じkeyは別リクエスト）。
	if u.deduper != nil && idemKey != "" {
		first, err := u.deduper.FirstSeen(ctx, strconv.FormatInt(userID, 10)+":"+idemKey)
		if err != nil {
			return "", storeErr(err)
		}
		if !first {
			return "", ErrDuplicateRequest
		}
	}

	return name, nil
}
