package usecase

import (
	"errors"
	"fmt"
)

// 呼び出し側が種別で分岐できるように、失敗は必ずこのどれかで返す。
var (
	//400 入力不足・形式不正
	ErrValidation = errors.New("validation error")
	//400 数量が0以下
	ErrInvalidQuantity = errors.New("invalid quantity")
	//400 商品名が空
	ErrInvalidProductName = errors.New("invalid product name")
	//400 from > to
	ErrInvalidDateRange = errors.New("invalid date range")
	//401 認証失敗（ユーザー不明とパスワード不一致は区別しない）
	ErrInvalidCredentials = errors.New("invalid credentials")
	//401 未認証での操作
	ErrUnauthorized = errors.New("unauthorized")
	//401 refresh tokenの再利用を検知
	ErrSecurityIncident = errors.New("security incident")
	//403 停止済みユーザー
	ErrUserInactive = errors.New("user is inactive")
	//404 対象なし
	ErrNotFound = errors.New("not found")
	//409 username重複
	ErrDuplicateUsername = errors.New("duplicate username")
	//409 同じIdempotency-Keyの再送
	ErrDuplicateRequest = errors.New("duplicate request")
	//422 出庫数が在庫を超えている
	ErrInsufficientStock = errors.New("insufficient stock")
	//503 ストレージ障害。ここではretryしない（呼び出し側の方針に任せる）
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// 想定外のstoreエラーをErrStorageUnavailableに包む。
// errors.Isで種別判定でき、元のエラー内容も残る。
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
