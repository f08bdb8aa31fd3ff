package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// username一意制約違反
var ErrDuplicateUsername = errors.New("duplicate username")

// ユーザーの保存・取得を約束
type UserRepository interface {
	// 新規ユーザー作成。username重複はErrDuplicateUsername。
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	// usernameからユーザーを1件取得する。
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// ユーザー情報の更新（最終ログインなど）
	Update(ctx context.Context, user *model.User) error
	// token_versionを+1する。発行済みaccess tokenを一括で無効化する。
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
