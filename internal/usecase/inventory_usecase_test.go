package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// In-memory fake ledger
// =====================

type ownerProduct struct {
	userID      int64
	productName string
}

// fakeLedger はBalanceRepository/TransactionRepository/TransactionManagerを
// 1つで実装する。WithinTxがmutexを握るので入出庫は直列化される。
type fakeLedger struct {
	mu      sync.Mutex
	items   map[ownerProduct]*model.StockItem
	records []model.TransactionRecord
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{items: map[ownerProduct]*model.StockItem{}}
}

func (f *fakeLedger) Balances() repo.BalanceRepository         { return f }
func (f *fakeLedger) Transactions() repo.TransactionRepository { return f }

func (f *fakeLedger) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// rollback用スナップショット
	itemsBak := make(map[ownerProduct]*model.StockItem, len(f.items))
	for k, v := range f.items {
		cp := *v
		itemsBak[k] = &cp
	}
	recordsBak := append([]model.TransactionRecord(nil), f.records...)

	if err := fn(f); err != nil {
		f.items = itemsBak
		f.records = recordsBak
		return err
	}
	return nil
}

func (f *fakeLedger) GetBalance(ctx context.Context, userID int64, productName string) (int64, error) {
	if item, ok := f.items[ownerProduct{userID, productName}]; ok {
		return item.Quantity, nil
	}
	return 0, nil
}

func (f *fakeLedger) UpsertIncrease(ctx context.Context, userID int64, productName string, qty int64) (int64, error) {
	key := ownerProduct{userID, productName}
	if item, ok := f.items[key]; ok {
		item.Quantity += qty
		return item.Quantity, nil
	}
	f.items[key] = &model.StockItem{
		UserID:      userID,
		ProductName: productName,
		Quantity:    qty,
	}
	return qty, nil
}

func (f *fakeLedger) DecreaseIfEnough(ctx context.Context, userID int64, productName string, qty int64) (int64, error) {
	item, ok := f.items[ownerProduct{userID, productName}]
	if !ok || item.Quantity < qty {
		return 0, repo.ErrInsufficientStock
	}
	item.Quantity -= qty
	return item.Quantity, nil
}

func (f *fakeLedger) SetImageRef(ctx context.Context, userID int64, productName string, ref string) error {
	item, ok := f.items[ownerProduct{userID, productName}]
	if !ok {
		return repo.ErrNotFound
	}
	item.ImageRef = ref
	return nil
}

func (f *fakeLedger) ListByUserID(ctx context.Context, userID int64) ([]model.StockItem, error) {
	var out []model.StockItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

func (f *fakeLedger) FindByOwnerProduct(ctx context.Context, userID int64, productName string) (*model.StockItem, error) {
	if item, ok := f.items[ownerProduct{userID, productName}]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeLedger) Append(ctx context.Context, record *model.TransactionRecord) error {
	f.nextID++
	record.ID = f.nextID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeLedger) ListByUserIDBetween(ctx context.Context, userID int64, from time.Time, toExclusive time.Time) ([]model.TransactionRecord, error) {
	var out []model.TransactionRecord
	for _, rec := range f.records {
		if rec.UserID != userID {
			continue
		}
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(toExclusive) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// 残高＝ログの符号付き合計、の検査用
func (f *fakeLedger) sumOfLog(userID int64, productName string) int64 {
	var sum int64
	for _, rec := range f.records {
		if rec.UserID != userID || rec.ProductName != productName {
			continue
		}
		if rec.Kind == model.KindIn {
			sum += rec.Qty
		} else {
			sum -= rec.Qty
		}
	}
	return sum
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	n     int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Store(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ref := "blob-" + strconv.Itoa(s.n)
	s.blobs[ref] = data
	return ref, nil
}

func (s *fakeBlobStore) Retrieve(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return data, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

// 常に失敗するTransactionManager（ストレージ障害を装う）
type failingTx struct{}

func (failingTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return errors.New("connection refused")
}

type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (d *fakeDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func newInventoryUC(ledger *fakeLedger) (*InventoryUsecase, *fakeBlobStore, *fakeDeduper) {
	blobs := newFakeBlobStore()
	deduper := newFakeDeduper()
	uc := NewInventoryUsecase(ledger, ledger, ledger, blobs, deduper)
	return uc, blobs, deduper
}

// =====================
// Tests
// =====================

const alice int64 = 1
const bob int64 = 2

func TestInventoryUsecase_Scenario(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	// 入庫10 → 残高10、IN記録1件
	out, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.Quantity)
	assert.Len(t, ledger.records, 1)

	// 出庫4 → 残高6、記録2件
	out, err = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), out.Quantity)
	assert.Len(t, ledger.records, 2)

	// 出庫100 → InsufficientStock、残高もログも変化なし
	_, err = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 100})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	balance, _ := ledger.GetBalance(ctx, alice, "Widget")
	assert.Equal(t, int64(6), balance)
	assert.Len(t, ledger.records, 2)

	// 残高＝ログの符号付き合計
	assert.Equal(t, balance, ledger.sumOfLog(alice, "Widget"))

	// 当日レポートは2件、新しい順
	today := time.Now().Add(-time.Minute)
	report, err := uc.GetReport(ctx, alice, today, today)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, "OUT", report[0].Kind)
	assert.Equal(t, int64(4), report[0].Qty)
	assert.Equal(t, "IN", report[1].Kind)
	assert.Equal(t, int64(10), report[1].Qty)
}

func TestInventoryUsecase_StockIn_Validation(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "", Qty: 5})
	assert.ErrorIs(t, err, ErrInvalidProductName)

	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "   ", Qty: 5})
	assert.ErrorIs(t, err, ErrInvalidProductName)

	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: -3})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = uc.StockIn(ctx, 0, StockInInput{ProductName: "Widget", Qty: 1})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// 弾かれたリクエストは何も書かない
	assert.Empty(t, ledger.items)
	assert.Empty(t, ledger.records)
}

func TestInventoryUsecase_StockOut_Validation(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	_, err := uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// 存在しない商品の出庫は在庫0扱い
	_, err = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Ghost", Qty: 1})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Empty(t, ledger.records)
}

func TestInventoryUsecase_ProductNameTrimmed(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "  Widget  ", Qty: 3})
	require.NoError(t, err)

	out, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Quantity)
}

func TestInventoryUsecase_ConcurrentStockOut(t *testing.T) {
	ctx := context.Background()

	// 6+6=12 > 10: どちらか一方だけ成功する
	t.Run("oversubscribed", func(t *testing.T) {
		ledger := newFakeLedger()
		uc, _, _ := newInventoryUC(ledger)

		_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 10})
		require.NoError(t, err)

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 6})
			}(i)
		}
		wg.Wait()

		var success, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrInsufficientStock):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, success)
		assert.Equal(t, 1, insufficient)

		balance, _ := ledger.GetBalance(ctx, alice, "Widget")
		assert.Equal(t, int64(4), balance)
		assert.Equal(t, balance, ledger.sumOfLog(alice, "Widget"))
	})

	// 5+5=10: 両方成功して残高0。rowは残る。
	t.Run("exact", func(t *testing.T) {
		ledger := newFakeLedger()
		uc, _, _ := newInventoryUC(ledger)

		_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 10})
		require.NoError(t, err)

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 5})
			}(i)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		balance, _ := ledger.GetBalance(ctx, alice, "Widget")
		assert.Equal(t, int64(0), balance)
		assert.Equal(t, balance, ledger.sumOfLog(alice, "Widget"))

		// 数量0でもlistには出る
		items, err := uc.ListInventory(ctx, alice)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(0), items[0].Quantity)
	})
}

func TestInventoryUsecase_Isolation(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	// 同じ商品名でも所有者が違えば別物
	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 10})
	require.NoError(t, err)
	_, err = uc.StockIn(ctx, bob, StockInInput{ProductName: "Widget", Qty: 3})
	require.NoError(t, err)

	aliceItems, err := uc.ListInventory(ctx, alice)
	require.NoError(t, err)
	require.Len(t, aliceItems, 1)
	assert.Equal(t, int64(10), aliceItems[0].Quantity)

	bobItems, err := uc.ListInventory(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobItems, 1)
	assert.Equal(t, int64(3), bobItems[0].Quantity)

	// レポートも他人の分は混ざらない
	day := time.Now().Add(-time.Minute)
	report, err := uc.GetReport(ctx, bob, day, day)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, int64(3), report[0].Qty)
}

func TestInventoryUsecase_ListIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 7})
	require.NoError(t, err)
	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Gadget", Qty: 2})
	require.NoError(t, err)

	first, err := uc.ListInventory(ctx, alice)
	require.NoError(t, err)
	second, err := uc.ListInventory(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestInventoryUsecase_Report_InvalidRange(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := uc.GetReport(ctx, alice, from, to)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestInventoryUsecase_IdempotencyKey(t *testing.T) {
	ledger := newFakeLedger()
	uc, _, _ := newInventoryUC(ledger)
	ctx := context.Background()

	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 5, IdempotencyKey: "req-1"})
	require.NoError(t, err)

	// 同じキーの再送は弾かれ、残高は増えない
	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 5, IdempotencyKey: "req-1"})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	balance, _ := ledger.GetBalance(ctx, alice, "Widget")
	assert.Equal(t, int64(5), balance)

	// キー無しはチェックなし
	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 5})
	require.NoError(t, err)

	// 別ユーザーが同じキーを使っても独立（keyはユーザーごと）
	_, err = uc.StockIn(ctx, bob, StockInInput{ProductName: "Widget", Qty: 3, IdempotencyKey: "req-1"})
	require.NoError(t, err)

	balance, _ = ledger.GetBalance(ctx, bob, "Widget")
	assert.Equal(t, int64(3), balance)
}

func TestInventoryUsecase_StoreFailure(t *testing.T) {
	ledger := newFakeLedger()
	blobs := newFakeBlobStore()
	uc := NewInventoryUsecase(failingTx{}, ledger, ledger, blobs, nil)
	ctx := context.Background()

	img := []byte{0x89, 'P', 'N', 'G'}
	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 5, Image: img})
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	// rollbackされたTxの画像はディスクに残さない
	assert.Empty(t, blobs.blobs)

	_, err = uc.StockOut(ctx, alice, StockOutInput{ProductName: "Widget", Qty: 1})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestInventoryUsecase_Image(t *testing.T) {
	ledger := newFakeLedger()
	uc, blobs, _ := newInventoryUC(ledger)
	ctx := context.Background()

	img := []byte{0x89, 'P', 'N', 'G'}
	_, err := uc.StockIn(ctx, alice, StockInInput{ProductName: "Widget", Qty: 1, Image: img})
	require.NoError(t, err)
	assert.Len(t, blobs.blobs, 1)

	got, err := uc.GetImage(ctx, alice, "Widget")
	require.NoError(t, err)
	assert.Equal(t, img, got)

	// 画像なし商品はNotFound
	_, err = uc.StockIn(ctx, alice, StockInInput{ProductName: "Gadget", Qty: 1})
	require.NoError(t, err)
	_, err = uc.GetImage(ctx, alice, "Gadget")
	assert.ErrorIs(t, err, ErrNotFound)

	// 他人の画像は見えない
	_, err = uc.GetImage(ctx, bob, "Widget")
	assert.ErrorIs(t, err, ErrNotFound)
}
